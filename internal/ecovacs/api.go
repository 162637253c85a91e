package ecovacs

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
)

const (
	clientKey        = "1520391301804"
	clientSecret     = "6c319b2a5cd3e66e39159c2e28f2fce9"
	authClientKey    = "1520391491841"
	authClientSecret = "77ef58ce3afbe337da74aa8c5ab963a9"

	appCode    = "global_e"
	appVersion = "1.6.3"
	appChannel = "google_play"
	deviceType = "1"
	appLang    = "EN"

	portalRealm   = "ecouser.net"
	portalOrg     = "ECOWW"
	portalEdition = "ECOGLOBLE"
)

// apiClient talks to the Ecovacs cloud HTTP endpoints: the main login
// API, the open API (auth code exchange), and the user portal.
type apiClient struct {
	email        string
	passwordHash string
	country      string
	continent    string
	deviceID     string
	httpClient   *http.Client

	// overridable for tests
	mainURL   string
	openURL   string
	portalURL string
}

func newAPIClient(email, password, country, continent string) *apiClient {
	return &apiClient{
		email:        email,
		passwordHash: md5Hex([]byte(password)),
		country:      country,
		continent:    continent,
		deviceID:     randomDeviceID(),
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

func randomDeviceID() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

func md5Hex(data []byte) string {
	sum := md5.Sum(data)
	return hex.EncodeToString(sum[:])
}

func (c *apiClient) mainBase() string {
	if c.mainURL != "" {
		return c.mainURL
	}
	return fmt.Sprintf("https://gl-%s-api.ecovacs.com", strings.ToLower(c.country))
}

func (c *apiClient) openBase() string {
	if c.openURL != "" {
		return c.openURL
	}
	return fmt.Sprintf("https://gl-%s-openapi.ecovacs.com", strings.ToLower(c.country))
}

func (c *apiClient) portalBase() string {
	if c.portalURL != "" {
		return c.portalURL
	}
	return fmt.Sprintf("https://portal-%s.ecouser.net/api", strings.ToLower(c.continent))
}

// Login performs the three-step authentication chain: signed main-API
// login, auth-code exchange, and the portal it-token login that yields
// the session used for device lists, commands, and MQTT.
func (c *apiClient) Login(ctx context.Context) (*Credentials, error) {
	uid, accessToken, err := c.mainLogin(ctx)
	if err != nil {
		return nil, err
	}
	authCode, err := c.getAuthCode(ctx, uid, accessToken)
	if err != nil {
		return nil, err
	}
	return c.loginByItToken(ctx, uid, authCode)
}

func (c *apiClient) mainLogin(ctx context.Context) (uid, accessToken string, err error) {
	params := map[string]string{
		"account":      c.email,
		"password":     c.passwordHash,
		"requestId":    md5Hex([]byte(strconv.FormatInt(time.Now().UnixNano(), 10))),
		"authTimespan": strconv.FormatInt(time.Now().UnixMilli(), 10),
		"authTimeZone": "GMT-8",
	}
	meta := map[string]string{
		"country":    strings.ToLower(c.country),
		"lang":       appLang,
		"deviceId":   c.deviceID,
		"appCode":    appCode,
		"appVersion": appVersion,
		"channel":    appChannel,
		"deviceType": deviceType,
	}
	signed := signParams(params, meta, clientKey, clientSecret)

	path := fmt.Sprintf("/v1/private/%s/%s/%s/%s/%s/%s/%s/user/login",
		strings.ToLower(c.country), appLang, c.deviceID, appCode, appVersion, appChannel, deviceType)

	var resp struct {
		Code string `json:"code"`
		Msg  string `json:"msg"`
		Data struct {
			UID         string `json:"uid"`
			AccessToken string `json:"accessToken"`
		} `json:"data"`
	}
	if err := c.getJSON(ctx, c.mainBase()+path, signed, &resp); err != nil {
		return "", "", fmt.Errorf("login: %w", err)
	}
	if resp.Code != "0000" {
		return "", "", fmt.Errorf("login rejected (code %s): %s", resp.Code, resp.Msg)
	}
	if resp.Data.UID == "" || resp.Data.AccessToken == "" {
		return "", "", errors.New("login response missing uid or access token")
	}
	return resp.Data.UID, resp.Data.AccessToken, nil
}

func (c *apiClient) getAuthCode(ctx context.Context, uid, accessToken string) (string, error) {
	params := map[string]string{
		"uid":          uid,
		"accessToken":  accessToken,
		"bizType":      "ECOVACS_IOT",
		"deviceId":     c.deviceID,
		"authTimespan": strconv.FormatInt(time.Now().UnixMilli(), 10),
	}
	signed := signParams(params, nil, authClientKey, authClientSecret)
	signed["openId"] = "global"

	var resp struct {
		Code string `json:"code"`
		Msg  string `json:"msg"`
		Data struct {
			AuthCode string `json:"authCode"`
		} `json:"data"`
	}
	if err := c.getJSON(ctx, c.openBase()+"/v1/global/auth/getAuthCode", signed, &resp); err != nil {
		return "", fmt.Errorf("auth code: %w", err)
	}
	if resp.Code != "0000" {
		return "", fmt.Errorf("auth code rejected (code %s): %s", resp.Code, resp.Msg)
	}
	if resp.Data.AuthCode == "" {
		return "", errors.New("auth code response missing authCode")
	}
	return resp.Data.AuthCode, nil
}

func (c *apiClient) loginByItToken(ctx context.Context, uid, authCode string) (*Credentials, error) {
	resource := c.deviceID[:8]
	body := map[string]any{
		"todo":     "loginByItToken",
		"country":  strings.ToUpper(c.country),
		"resource": resource,
		"realm":    portalRealm,
		"org":      portalOrg,
		"edition":  portalEdition,
		"userId":   uid,
		"token":    authCode,
		"last":     "",
	}

	var resp struct {
		Result string `json:"result"`
		Error  string `json:"error"`
		UserID string `json:"userId"`
		Token  string `json:"token"`
	}
	if err := c.postJSON(ctx, c.portalBase()+"/users/user.do", body, &resp); err != nil {
		return nil, fmt.Errorf("portal login: %w", err)
	}
	if resp.Result != "ok" {
		return nil, fmt.Errorf("portal login rejected: %s", resp.Error)
	}
	return &Credentials{UserID: resp.UserID, Token: resp.Token, Resource: resource}, nil
}

// DeviceList fetches the account's registered devices from the portal.
func (c *apiClient) DeviceList(ctx context.Context, creds *Credentials) ([]portalDevice, error) {
	body := map[string]any{
		"todo":   "GetDeviceList",
		"userid": creds.UserID,
		"auth":   c.auth(creds),
	}

	var resp struct {
		Result  string         `json:"result"`
		Error   string         `json:"error"`
		Devices []portalDevice `json:"devices"`
	}
	if err := c.postJSON(ctx, c.portalBase()+"/users/user.do", body, &resp); err != nil {
		return nil, fmt.Errorf("device list: %w", err)
	}
	if resp.Result != "ok" {
		return nil, fmt.Errorf("device list rejected: %s", resp.Error)
	}
	return resp.Devices, nil
}

// SendCommand posts a JSON command to devmanager.do for one device.
func (c *apiClient) SendCommand(ctx context.Context, creds *Credentials, device portalDevice, name string, data any) error {
	body := map[string]any{
		"cmdName": name,
		"payload": map[string]any{
			"header": map[string]any{
				"pri": 1,
				"ts":  time.Now().UnixMilli(),
				"tzm": 480,
				"ver": "0.0.50",
			},
			"body": map[string]any{
				"data": data,
			},
		},
		"payloadType": "j",
		"td":          "q",
		"toId":        device.DID,
		"toRes":       device.Resource,
		"toType":      device.Class,
		"auth":        c.auth(creds),
	}

	var resp struct {
		Ret   string `json:"ret"`
		Errno int    `json:"errno"`
		Error string `json:"error"`
	}
	if err := c.postJSON(ctx, c.portalBase()+"/iot/devmanager.do", body, &resp); err != nil {
		return fmt.Errorf("command %s: %w", name, err)
	}
	if resp.Ret != "ok" {
		msg := resp.Error
		if msg == "" {
			msg = fmt.Sprintf("errno %d", resp.Errno)
		}
		return fmt.Errorf("command %s rejected: %s", name, msg)
	}
	return nil
}

func (c *apiClient) auth(creds *Credentials) portalAuth {
	return portalAuth{
		With:     "users",
		UserID:   creds.UserID,
		Realm:    portalRealm,
		Token:    creds.Token,
		Resource: creds.Resource,
	}
}

// signParams computes the request signature over the sorted union of
// params and meta and returns the full query parameter set.
func signParams(params, meta map[string]string, key, secret string) map[string]string {
	all := make(map[string]string, len(params)+len(meta)+1)
	for k, v := range params {
		all[k] = v
	}
	for k, v := range meta {
		all[k] = v
	}
	all["authAppkey"] = key

	keys := make([]string, 0, len(all))
	for k := range all {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	sb.WriteString(key)
	for _, k := range keys {
		sb.WriteString(k)
		sb.WriteString("=")
		sb.WriteString(all[k])
	}
	sb.WriteString(secret)
	all["authSign"] = md5Hex([]byte(sb.String()))
	return all
}

func (c *apiClient) getJSON(ctx context.Context, rawURL string, params map[string]string, out any) error {
	urlObj, err := url.Parse(rawURL)
	if err != nil {
		return err
	}
	q := urlObj.Query()
	for k, v := range params {
		q.Set(k, v)
	}
	urlObj.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, urlObj.String(), nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *apiClient) postJSON(ctx context.Context, rawURL string, body any, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rawURL, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *apiClient) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
