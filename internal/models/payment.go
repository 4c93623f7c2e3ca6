package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

type PaymentMethod string

const (
	PaymentCash          PaymentMethod = "Cash"
	PaymentCreditCard    PaymentMethod = "Credit Card"
	PaymentDebitCard     PaymentMethod = "Debit Card"
	PaymentMobilePayment PaymentMethod = "Mobile Payment"
)

var ErrInvalidPaymentMethod = errors.New("invalid payment method")

var paymentMethods = []PaymentMethod{
	PaymentCash,
	PaymentCreditCard,
	PaymentDebitCard,
	PaymentMobilePayment,
}

// PaymentMethods returns the accepted methods in menu order.
func PaymentMethods() []PaymentMethod {
	out := make([]PaymentMethod, len(paymentMethods))
	copy(out, paymentMethods)
	return out
}

// PaymentMethodByChoice maps a 1-based menu number to a method.
func PaymentMethodByChoice(choice string) (PaymentMethod, error) {
	n, err := strconv.Atoi(strings.TrimSpace(choice))
	if err != nil || n < 1 || n > len(paymentMethods) {
		return "", fmt.Errorf("%w: %q", ErrInvalidPaymentMethod, choice)
	}
	return paymentMethods[n-1], nil
}

func (m PaymentMethod) Valid() bool {
	for _, pm := range paymentMethods {
		if pm == m {
			return true
		}
	}
	return false
}

func (m *PaymentMethod) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	pm := PaymentMethod(s)
	// Unsettled sales are never persisted, so an empty method is never valid on disk.
	if !pm.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidPaymentMethod, s)
	}
	*m = pm
	return nil
}
