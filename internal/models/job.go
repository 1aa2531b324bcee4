package models

// AssetRef names one service of an asset in a job request.
type AssetRef struct {
	Did       string                 `json:"did" yaml:"did"`
	ServiceID string                 `json:"serviceId" yaml:"serviceId"`
	Userdata  map[string]interface{} `json:"userdata,omitempty" yaml:"userdata"`
}

// JobRequest is a job as submitted by a user, before assets are resolved.
type JobRequest struct {
	Datasets         []AssetRef                    `json:"datasets"`
	Algorithm        AssetRef                      `json:"algorithm"`
	ComputeEnv       string                        `json:"computeEnv"`
	Resources        map[string]*EnvResourceValues `json:"resources"`
	CustomParameters map[string]interface{}        `json:"customParameters,omitempty"`
}
