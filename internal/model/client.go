package model

// Client is a tenant record, used to scope reports to one customer.
type Client struct {
	ClientID string         `json:"client_id"`
	Name     *string        `json:"name"`
	Raw      map[string]any `json:"-"`
}

// DisplayName returns the client name, falling back to the ID.
func (c Client) DisplayName() string {
	if c.Name != nil && *c.Name != "" {
		return *c.Name
	}
	return c.ClientID
}
