package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	t.Setenv(EnvEmail, "user@example.com")
	t.Setenv(EnvPassword, "hunter2")
	t.Setenv(EnvCountry, "")
	t.Setenv(EnvContinent, "")
	t.Setenv(EnvHTTPAddr, "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Country != DefaultCountry {
		t.Fatalf("expected default country %s, got %s", DefaultCountry, cfg.Country)
	}
	if cfg.Continent != DefaultContinent {
		t.Fatalf("expected default continent %s, got %s", DefaultContinent, cfg.Continent)
	}
	if cfg.HTTPAddr != DefaultHTTPAddr {
		t.Fatalf("expected default addr %s, got %s", DefaultHTTPAddr, cfg.HTTPAddr)
	}
}

func TestLoadUppercasesRegion(t *testing.T) {
	t.Setenv(EnvEmail, "user@example.com")
	t.Setenv(EnvPassword, "hunter2")
	t.Setenv(EnvCountry, "de")
	t.Setenv(EnvContinent, "eu")
	t.Setenv(EnvHTTPAddr, "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Country != "DE" || cfg.Continent != "EU" {
		t.Fatalf("expected DE/EU, got %s/%s", cfg.Country, cfg.Continent)
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"valid", Config{Email: "a@b.com", Password: "p", Country: "US", Continent: "NA"}, false},
		{"missing email", Config{Password: "p", Country: "US", Continent: "NA"}, true},
		{"not an email", Config{Email: "nope", Password: "p", Country: "US", Continent: "NA"}, true},
		{"missing password", Config{Email: "a@b.com", Country: "US", Continent: "NA"}, true},
		{"bad country", Config{Email: "a@b.com", Password: "p", Country: "USA", Continent: "NA"}, true},
		{"bad continent", Config{Email: "a@b.com", Password: "p", Country: "US", Continent: "NATO"}, true},
	}

	for _, tc := range cases {
		err := Validate(tc.cfg)
		if tc.wantErr && err == nil {
			t.Fatalf("%s: expected error", tc.name)
		}
		if !tc.wantErr && err != nil {
			t.Fatalf("%s: unexpected error: %v", tc.name, err)
		}
	}
}
