package ecovacs

// Credentials captures the portal session obtained at login.
type Credentials struct {
	UserID   string
	Token    string
	Resource string
}

// portalDevice is the portal's description of one registered device.
type portalDevice struct {
	DID      string `json:"did"`
	Name     string `json:"name"`
	Nick     string `json:"nick"`
	Class    string `json:"class"`
	Resource string `json:"resource"`
	Company  string `json:"company"`
	Model    string `json:"deviceName"`
}

type portalAuth struct {
	With     string `json:"with"`
	UserID   string `json:"userid"`
	Realm    string `json:"realm"`
	Token    string `json:"token"`
	Resource string `json:"resource"`
}
