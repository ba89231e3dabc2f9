package enums

type PaymentMethod string

const (
	PaymentMethodCOD  PaymentMethod = "cod"
	PaymentMethodCard PaymentMethod = "card"
	PaymentMethodUPI  PaymentMethod = "upi"
)

var paymentMethods = []PaymentMethod{PaymentMethodCOD, PaymentMethodCard, PaymentMethodUPI}

func (p PaymentMethod) String() string { return string(p) }

func (p PaymentMethod) IsValid() bool { return member(paymentMethods, p) }

// ConfirmsOnCreate is true for cash on delivery: nothing to wait for, so
// the order starts confirmed.
func (p PaymentMethod) ConfirmsOnCreate() bool {
	return p == PaymentMethodCOD
}

// ParsePaymentMethod is case-insensitive; empty input is an error.
func ParsePaymentMethod(value string) (PaymentMethod, error) {
	return lookup(paymentMethods, value, "payment method")
}
