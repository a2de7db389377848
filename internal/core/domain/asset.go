package domain

// AssetRecord is one row of the equipment registry. The registry is loaded by
// an external source and treated as read-only, fixed-order input; no
// uniqueness is enforced here. Any field may be empty and scoring treats
// empty fields as absent signals.
type AssetRecord struct {
	AssetID      string `json:"asset_id"`
	ExternalID   string `json:"external_id"`
	Tag          string `json:"tag"`
	Name         string `json:"name"`
	Manufacturer string `json:"manufacturer"`
	Model        string `json:"model"`
	Serial       string `json:"serial"`
	Project      string `json:"project"`
	FileHash     string `json:"file_hash,omitempty"`
}
