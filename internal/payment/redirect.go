package payment

import (
	"context"
	"fmt"
	"html/template"
	"io"

	"github.com/TechnoExperience/texnewweb-sub000/internal/logger"
	"github.com/TechnoExperience/texnewweb-sub000/internal/metrics"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type FormField struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// RedirectForm is a POST to the gateway carrying exactly three hidden fields.
type RedirectForm struct {
	Action string      `json:"action"`
	Method string      `json:"method"`
	Fields []FormField `json:"fields"`
}

var redirectTemplate = template.Must(template.New("redirect").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>Redirecting to payment</title></head>
<body onload="document.forms[0].submit()">
<form method="{{.Method}}" action="{{.Action}}">
{{- range .Fields}}
<input type="hidden" name="{{.Name}}" value="{{.Value}}">
{{- end}}
<noscript><button type="submit">Continue to payment</button></noscript>
</form>
</body>
</html>
`))

// Render writes an HTML page that submits the form on load.
func (f *RedirectForm) Render(w io.Writer) error {
	return redirectTemplate.Execute(w, f)
}

type RedirectBuilder interface {
	Build(ctx context.Context, orderID string, amount decimal.Decimal, currency string) (*RedirectForm, error)
}

type redirectBuilder struct {
	backend Backend
	metrics *metrics.Metrics
}

func NewRedirectBuilder(backend Backend, m *metrics.Metrics) RedirectBuilder {
	return &redirectBuilder{backend: backend, metrics: m}
}

// Build never returns a partial form: a refusal or an incomplete payload is ErrPaymentRejected.
func (b *redirectBuilder) Build(ctx context.Context, orderID string, amount decimal.Decimal, currency string) (*RedirectForm, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "Build"),
		zap.String("order_id", orderID),
	)

	resp, err := b.backend.RequestSignature(ctx, SignRequest{OrderID: orderID, Amount: amount, Currency: currency})
	if err != nil {
		b.metrics.PaymentRequests.WithLabelValues("error").Inc()
		log.Error("payment backend unreachable", zap.Error(err))
		return nil, fmt.Errorf("request payment signature: %w", err)
	}

	if !resp.Complete() {
		b.metrics.PaymentRequests.WithLabelValues("rejected").Inc()
		log.Warn("payment backend rejected request", zap.Bool("success", resp.Success), zap.String("error", resp.Error))
		if resp.Error != "" {
			return nil, fmt.Errorf("%w: %s", ErrPaymentRejected, resp.Error)
		}
		return nil, ErrPaymentRejected
	}

	b.metrics.PaymentRequests.WithLabelValues("ok").Inc()
	return &RedirectForm{
		Action: resp.RedirectURL,
		Method: "POST",
		Fields: []FormField{
			{Name: FieldMerchantParameters, Value: resp.Parameters},
			{Name: FieldSignatureVersion, Value: SignatureVersion},
			{Name: FieldSignature, Value: resp.Signature},
		},
	}, nil
}
