package admin

import "context"

// Dialog kinds.
const (
	DialogSuccess = "success"
	DialogError   = "error"
	DialogConfirm = "confirm"
)

// Dialog is a modal message for the operator.
// Operator names the admin session it is meant for; empty means every one.
type Dialog struct {
	Kind           string `json:"type"`
	Message        string `json:"message"`
	ConfirmationID string `json:"confirmationId,omitempty"`
	Operator       string `json:"-"`
}

// Dialogs shows dialogs to the operator.
type Dialogs interface {
	Show(d Dialog)
}

// Notifier announces newly arrived pending orders.
type Notifier interface {
	NewOrders(pending int)
}

type nopDialogs struct{}

func (nopDialogs) Show(Dialog) {}

type nopNotifier struct{}

func (nopNotifier) NewOrders(int) {}

type operatorKey struct{}

// WithOperator tags ctx with the admin session acting through it.
func WithOperator(ctx context.Context, operator string) context.Context {
	return context.WithValue(ctx, operatorKey{}, operator)
}

// OperatorFrom returns the admin session ctx was tagged with, if any.
func OperatorFrom(ctx context.Context) string {
	op, _ := ctx.Value(operatorKey{}).(string)
	return op
}
