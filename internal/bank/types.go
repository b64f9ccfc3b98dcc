// Package bank exposes the account and customer resources of the banking API.
package bank

import (
	"encoding/json"

	"github.com/dvcrn/bank-api-client/internal/jsonx"
)

// Account is a bank account. Fields the client does not model are kept in
// Extra so a read-modify-write round trip does not drop them.
type Account struct {
	ID            jsonx.ID `json:"id"`
	AccountNumber string   `json:"accountNumber,omitempty"`
	Type          string   `json:"accountType,omitempty"`
	Balance       float64  `json:"balance"`
	Currency      string   `json:"currency,omitempty"`
	Status        string   `json:"status,omitempty"`
	CustomerID    jsonx.ID `json:"customerId,omitempty"`

	Extra map[string]json.RawMessage `json:"-"`
}

// Customer is an account holder.
type Customer struct {
	ID        jsonx.ID `json:"id"`
	FirstName string   `json:"firstName,omitempty"`
	LastName  string   `json:"lastName,omitempty"`
	Email     string   `json:"email,omitempty"`
	Phone     string   `json:"phone,omitempty"`
	Address   string   `json:"address,omitempty"`

	Extra map[string]json.RawMessage `json:"-"`
}

// FullName joins the first and last name.
func (c Customer) FullName() string {
	switch {
	case c.FirstName == "":
		return c.LastName
	case c.LastName == "":
		return c.FirstName
	}
	return c.FirstName + " " + c.LastName
}

var (
	accountFields  = []string{"id", "accountNumber", "accountType", "balance", "currency", "status", "customerId"}
	customerFields = []string{"id", "firstName", "lastName", "email", "phone", "address"}
)

type accountAlias Account

func (a *Account) UnmarshalJSON(data []byte) error {
	var alias accountAlias
	if err := json.Unmarshal(data, &alias); err != nil {
		return err
	}
	extra, err := extraFields(data, accountFields)
	if err != nil {
		return err
	}
	*a = Account(alias)
	a.Extra = extra
	return nil
}

func (a Account) MarshalJSON() ([]byte, error) {
	return withExtra(accountAlias(a), a.Extra)
}

type customerAlias Customer

func (c *Customer) UnmarshalJSON(data []byte) error {
	var alias customerAlias
	if err := json.Unmarshal(data, &alias); err != nil {
		return err
	}
	extra, err := extraFields(data, customerFields)
	if err != nil {
		return err
	}
	*c = Customer(alias)
	c.Extra = extra
	return nil
}

func (c Customer) MarshalJSON() ([]byte, error) {
	return withExtra(customerAlias(c), c.Extra)
}

func extraFields(data []byte, known []string) (map[string]json.RawMessage, error) {
	var all map[string]json.RawMessage
	if err := json.Unmarshal(data, &all); err != nil {
		return nil, err
	}
	for _, k := range known {
		delete(all, k)
	}
	if len(all) == 0 {
		return nil, nil
	}
	return all, nil
}

func withExtra(v any, extra map[string]json.RawMessage) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil || len(extra) == 0 {
		return data, err
	}
	var merged map[string]json.RawMessage
	if err := json.Unmarshal(data, &merged); err != nil {
		return nil, err
	}
	for k, raw := range extra {
		if _, ok := merged[k]; !ok {
			merged[k] = raw
		}
	}
	return json.Marshal(merged)
}
