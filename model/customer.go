package model

import "strings"

// AttrPersonalNumber is the customer custom attribute holding the national id.
const AttrPersonalNumber = "personal_number"

type CustomAttribute struct {
	Code  string `json:"attribute_code"`
	Value string `json:"value"`
}

type Customer struct {
	ID               string            `json:"id,omitempty"`
	Email            string            `json:"email"`
	Firstname        string            `json:"firstname"`
	Lastname         string            `json:"lastname"`
	Telephone        string            `json:"telephone,omitempty"`
	Addresses        []Address         `json:"addresses,omitempty"`
	CustomAttributes []CustomAttribute `json:"custom_attributes,omitempty"`
}

func (c *Customer) FullName() string {
	return strings.TrimSpace(c.Firstname + " " + c.Lastname)
}

func (c *Customer) Attribute(code string) string {
	for _, a := range c.CustomAttributes {
		if a.Code == code {
			return a.Value
		}
	}
	return ""
}

func (c *Customer) PersonalNumber() string {
	return c.Attribute(AttrPersonalNumber)
}

func (c *Customer) FindAddress(id int) *Address {
	for i := range c.Addresses {
		if c.Addresses[i].ID == id {
			return &c.Addresses[i]
		}
	}
	return nil
}

type Address struct {
	ID          int      `json:"id,omitempty"`
	Firstname   string   `json:"firstname"`
	Lastname    string   `json:"lastname"`
	Street      []string `json:"street"`
	City        string   `json:"city"`
	Postcode    string   `json:"postcode"`
	CountryCode string   `json:"country_code"`
	Telephone   string   `json:"telephone"`
	Company     string   `json:"company,omitempty"`
}

// Line renders the address on a single line for contracts.
func (a *Address) Line() string {
	if a == nil {
		return ""
	}
	parts := make([]string, 0, len(a.Street)+2)
	for _, s := range a.Street {
		if s = strings.TrimSpace(s); s != "" {
			parts = append(parts, s)
		}
	}
	if city := strings.TrimSpace(a.Postcode + " " + a.City); city != "" {
		parts = append(parts, city)
	}
	if a.CountryCode != "" {
		parts = append(parts, a.CountryCode)
	}
	return strings.Join(parts, ", ")
}
