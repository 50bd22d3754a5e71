package checkout

import (
	"errors"

	"github.com/TechnoExperience/texnewweb-sub000/internal/address"
	"github.com/TechnoExperience/texnewweb-sub000/internal/cart"
)

// Step is a wizard position. Steps only move one at a time.
type Step int

const (
	StepAddress Step = iota + 1
	StepReview
	StepPayment
)

func (s Step) String() string {
	switch s {
	case StepAddress:
		return "address"
	case StepReview:
		return "review"
	case StepPayment:
		return "payment"
	}
	return "unknown"
}

var (
	ErrEmptyCart = cart.ErrEmptyCart
	// ErrFinalStep is returned by Next on Payment; leaving Payment is the submit itself.
	ErrFinalStep = errors.New("checkout is already at the payment step")
)

// Form is what the buyer entered across the wizard.
type Form struct {
	ShippingAddress address.Address     `json:"shipping_address"`
	BillingAddress  *address.Address    `json:"billing_address,omitempty"`
	SameAsShipping  bool                `json:"same_as_shipping"`
	ShippingMethod  cart.ShippingMethod `json:"shipping_method"`
	PaymentMethod   string              `json:"payment_method"`
}

// Billing is a structural copy of the shipping address when same-as-shipping is set or
// no billing address was given.
func (f Form) Billing() address.Address {
	if f.SameAsShipping || f.BillingAddress == nil {
		return f.ShippingAddress.Copy()
	}
	return *f.BillingAddress
}

// Validate collects the field errors of every address the form uses.
func (f Form) Validate() error {
	var fields []address.FieldError
	collect := func(err error) {
		var verr *address.ValidationError
		if errors.As(err, &verr) {
			fields = append(fields, verr.Fields...)
		}
	}

	collect(f.ShippingAddress.Validate("shipping"))
	if !f.SameAsShipping && f.BillingAddress != nil {
		collect(f.BillingAddress.Validate("billing"))
	}

	if len(fields) == 0 {
		return nil
	}
	return &address.ValidationError{Prefix: "checkout", Fields: fields}
}

// Machine is the Address, Review, Payment wizard for one cart. It always starts on Address.
type Machine struct {
	lines []cart.Line
	form  Form
	step  Step
}

// NewMachine refuses an empty cart so the flow can send the buyer back to the storefront
// before any step is shown.
func NewMachine(lines []cart.Line) (*Machine, error) {
	if len(lines) == 0 {
		return nil, ErrEmptyCart
	}
	return &Machine{lines: lines, step: StepAddress}, nil
}

func (m *Machine) Step() Step         { return m.step }
func (m *Machine) Lines() []cart.Line { return m.lines }
func (m *Machine) Form() Form         { return m.form }
func (m *Machine) SetForm(f Form)     { m.form = f }

// Next advances one step. Leaving Address requires complete addresses; on failure the
// machine stays put and the returned *address.ValidationError lists the missing fields.
func (m *Machine) Next() error {
	switch m.step {
	case StepAddress:
		if err := m.form.Validate(); err != nil {
			return err
		}
		m.step = StepReview
	case StepReview:
		m.step = StepPayment
	default:
		return ErrFinalStep
	}
	return nil
}

// Back moves to the previous step. On Address it reports exited, meaning the buyer
// leaves the checkout for the storefront.
func (m *Machine) Back() (exited bool) {
	if m.step == StepAddress {
		return true
	}
	m.step--
	return false
}

// Replay runs a fresh machine forward from Address towards target and stops at the first
// failing gate. It is how a stateless client learns which step its form reaches.
func Replay(lines []cart.Line, form Form, target Step) (*Machine, error) {
	m, err := NewMachine(lines)
	if err != nil {
		return nil, err
	}
	m.SetForm(form)

	if target > StepPayment {
		target = StepPayment
	}
	for m.step < target {
		if err := m.Next(); err != nil {
			return m, err
		}
	}
	return m, nil
}
