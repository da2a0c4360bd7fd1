package vault

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Login is one stored credential. Notes is the only optional field.
type Login struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Secret    string    `json:"secret"`
	Service   string    `json:"service"`
	Notes     string    `json:"notes,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Client owns an ordered list of logins.
type Client struct {
	ID          string    `json:"id"`
	DisplayName string    `json:"display_name"`
	Email       string    `json:"email,omitempty"`
	Logins      []Login   `json:"logins"`
	CreatedAt   time.Time `json:"created_at"`
}

// Catalogue is the unit of encryption and persistence.
type Catalogue struct {
	SchemaVersion int       `json:"schema_version"`
	Clients       []Client  `json:"clients"`
	LastUpdated   time.Time `json:"last_updated"`
}

func now() time.Time { return time.Now().UTC() }

func NewCatalogue() *Catalogue {
	return &Catalogue{SchemaVersion: SchemaVersion, Clients: []Client{}, LastUpdated: now()}
}

func NewLogin(username, secret, service, notes string) (Login, error) {
	l := Login{
		ID:        uuid.New().String(),
		Username:  strings.TrimSpace(username),
		Secret:    secret,
		Service:   strings.TrimSpace(service),
		Notes:     strings.TrimSpace(notes),
		CreatedAt: now(),
	}
	return l, l.Validate()
}

func (l Login) Validate() error {
	switch {
	case l.ID == "":
		return fmt.Errorf("%w: login id is required", ErrValidation)
	case l.Username == "":
		return fmt.Errorf("%w: username is required", ErrValidation)
	case l.Secret == "":
		return fmt.Errorf("%w: secret is required", ErrValidation)
	case l.Service == "":
		return fmt.Errorf("%w: service is required", ErrValidation)
	}
	return nil
}

func NewClient(name, email string) (Client, error) {
	c := Client{
		ID:          uuid.New().String(),
		DisplayName: strings.TrimSpace(name),
		Email:       strings.TrimSpace(email),
		Logins:      []Login{},
		CreatedAt:   now(),
	}
	return c, c.Validate()
}

func (c Client) Validate() error {
	if c.ID == "" {
		return fmt.Errorf("%w: client id is required", ErrValidation)
	}
	if c.DisplayName == "" {
		return fmt.Errorf("%w: display name is required", ErrValidation)
	}
	for _, l := range c.Logins {
		if err := l.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Validate checks required fields and that every id is unique across the
// whole catalogue.
func (c *Catalogue) Validate() error {
	seen := make(map[string]struct{})
	check := func(id string) error {
		if _, dup := seen[id]; dup {
			return fmt.Errorf("%w: duplicate id %s", ErrValidation, id)
		}
		seen[id] = struct{}{}
		return nil
	}
	for _, cl := range c.Clients {
		if err := cl.Validate(); err != nil {
			return err
		}
		if err := check(cl.ID); err != nil {
			return err
		}
		for _, l := range cl.Logins {
			if err := check(l.ID); err != nil {
				return err
			}
		}
	}
	return nil
}

// Clone returns a deep copy.
func (c *Catalogue) Clone() *Catalogue {
	out := *c
	out.Clients = make([]Client, len(c.Clients))
	for i, cl := range c.Clients {
		cl.Logins = append([]Login{}, cl.Logins...)
		out.Clients[i] = cl
	}
	return &out
}

// Touch records a mutation.
func (c *Catalogue) Touch() { c.LastUpdated = now() }

func (c *Catalogue) index(id string) int {
	for i := range c.Clients {
		if c.Clients[i].ID == id {
			return i
		}
	}
	return -1
}

func (c *Catalogue) hasID(id string) bool {
	for _, cl := range c.Clients {
		if cl.ID == id {
			return true
		}
		for _, l := range cl.Logins {
			if l.ID == id {
				return true
			}
		}
	}
	return false
}

// Client returns a pointer into the catalogue, or ErrNotFound.
func (c *Catalogue) Client(id string) (*Client, error) {
	i := c.index(id)
	if i < 0 {
		return nil, fmt.Errorf("%w: client %s", ErrNotFound, id)
	}
	return &c.Clients[i], nil
}

func (c *Catalogue) AddClient(cl Client) error {
	single := Catalogue{Clients: []Client{cl}}
	if err := single.Validate(); err != nil {
		return err
	}
	if cl.Logins == nil {
		cl.Logins = []Login{}
	}
	for _, id := range append([]string{cl.ID}, loginIDs(cl.Logins)...) {
		if c.hasID(id) {
			return fmt.Errorf("%w: duplicate id %s", ErrValidation, id)
		}
	}
	c.Clients = append(c.Clients, cl)
	c.Touch()
	return nil
}

// UpdateClient changes the mutable fields of a client. Id, logins and
// creation time are kept.
func (c *Catalogue) UpdateClient(id, name, email string) error {
	cl, err := c.Client(id)
	if err != nil {
		return err
	}
	updated := *cl
	updated.DisplayName = strings.TrimSpace(name)
	updated.Email = strings.TrimSpace(email)
	if err := updated.Validate(); err != nil {
		return err
	}
	*cl = updated
	c.Touch()
	return nil
}

// RemoveClient deletes a client together with all of its logins.
func (c *Catalogue) RemoveClient(id string) error {
	i := c.index(id)
	if i < 0 {
		return fmt.Errorf("%w: client %s", ErrNotFound, id)
	}
	c.Clients = append(c.Clients[:i], c.Clients[i+1:]...)
	c.Touch()
	return nil
}

func (c *Catalogue) AddLogin(clientID string, l Login) error {
	cl, err := c.Client(clientID)
	if err != nil {
		return err
	}
	if err := l.Validate(); err != nil {
		return err
	}
	if c.hasID(l.ID) {
		return fmt.Errorf("%w: duplicate id %s", ErrValidation, l.ID)
	}
	cl.Logins = append(cl.Logins, l)
	c.Touch()
	return nil
}

// UpdateLogin replaces the editable fields of a login in place.
func (c *Catalogue) UpdateLogin(clientID, loginID, username, secret, service, notes string) error {
	cl, err := c.Client(clientID)
	if err != nil {
		return err
	}
	for i := range cl.Logins {
		if cl.Logins[i].ID != loginID {
			continue
		}
		updated := cl.Logins[i]
		updated.Username = strings.TrimSpace(username)
		updated.Secret = secret
		updated.Service = strings.TrimSpace(service)
		updated.Notes = strings.TrimSpace(notes)
		if err := updated.Validate(); err != nil {
			return err
		}
		cl.Logins[i] = updated
		c.Touch()
		return nil
	}
	return fmt.Errorf("%w: login %s", ErrNotFound, loginID)
}

func (c *Catalogue) RemoveLogin(clientID, loginID string) error {
	cl, err := c.Client(clientID)
	if err != nil {
		return err
	}
	for i := range cl.Logins {
		if cl.Logins[i].ID == loginID {
			cl.Logins = append(cl.Logins[:i], cl.Logins[i+1:]...)
			c.Touch()
			return nil
		}
	}
	return fmt.Errorf("%w: login %s", ErrNotFound, loginID)
}

// Search returns the clients whose name or email contains query,
// case-insensitively. An empty query returns every client.
func (c *Catalogue) Search(query string) []Client {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return c.Clients
	}
	var out []Client
	for _, cl := range c.Clients {
		if strings.Contains(strings.ToLower(cl.DisplayName), q) ||
			(cl.Email != "" && strings.Contains(strings.ToLower(cl.Email), q)) {
			out = append(out, cl)
		}
	}
	return out
}

func loginIDs(ls []Login) []string {
	ids := make([]string, len(ls))
	for i, l := range ls {
		ids[i] = l.ID
	}
	return ids
}

// SampleCatalogue seeds a fresh vault with example clients.
func SampleCatalogue() *Catalogue {
	c := NewCatalogue()
	add := func(name, email string, logins ...[4]string) {
		cl, _ := NewClient(name, email)
		for _, f := range logins {
			l, _ := NewLogin(f[0], f[1], f[2], f[3])
			cl.Logins = append(cl.Logins, l)
		}
		_ = c.AddClient(cl)
	}
	add("Google", "admin@company.com",
		[4]string{"admin@company.com", "securePass123!", "accounts.google.com", "Main admin account"},
		[4]string{"support@company.com", "supportPass456!", "console.cloud.google.com", ""},
	)
	add("Microsoft", "it@company.com",
		[4]string{"it@company.com", "azurePass789!", "portal.azure.com", "Azure subscription"},
	)
	return c
}
