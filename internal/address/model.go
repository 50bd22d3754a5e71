package address

// Address is a postal address as entered in the checkout form.
type Address struct {
	FirstName    string  `json:"first_name" validate:"required,notblank"`
	LastName     string  `json:"last_name" validate:"required,notblank"`
	Company      *string `json:"company,omitempty"`
	AddressLine1 string  `json:"address_line_1" validate:"required,notblank"`
	AddressLine2 *string `json:"address_line_2,omitempty"`
	City         string  `json:"city" validate:"required,notblank"`
	State        *string `json:"state,omitempty"`
	PostalCode   string  `json:"postal_code" validate:"required,notblank"`
	Country      string  `json:"country" validate:"required,notblank"`
	Phone        *string `json:"phone,omitempty"`
}

// FullName is the name a supplier or gateway should print for the buyer.
func (a Address) FullName() string {
	switch {
	case a.FirstName == "":
		return a.LastName
	case a.LastName == "":
		return a.FirstName
	}
	return a.FirstName + " " + a.LastName
}

// Copy returns a structural copy with its own optional fields, used for
// "billing same as shipping".
func (a Address) Copy() Address {
	c := a
	c.Company = clonePtr(a.Company)
	c.AddressLine2 = clonePtr(a.AddressLine2)
	c.State = clonePtr(a.State)
	c.Phone = clonePtr(a.Phone)
	return c
}

func clonePtr(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
