package mail

import (
	"bytes"
	"text/template"
)

var (
	resetTmpl = template.Must(template.New("reset").Parse(
		`Hola {{.Name}},

Recibimos una solicitud para restablecer tu contraseña.
Abre este enlace en la próxima hora para elegir una nueva:

{{.Link}}

Si no fuiste tú, ignora este correo.
`))

	receiptTmpl = template.Must(template.New("receipt").Parse(
		`Hola {{.Name}},

Gracias por tu compra.

Producto: {{.Product}}
Importe:  {{.Amount}} {{.Currency}}
Referencia: {{.Reference}}

Ya puedes usar la herramienta desde tu panel: {{.DashboardURL}}
`))
)

type ResetData struct {
	Name string
	Link string
}

type ReceiptData struct {
	Name         string
	Product      string
	Amount       string
	Currency     string
	Reference    string
	DashboardURL string
}

func PasswordResetMessage(to string, d ResetData) (Message, error) {
	var buf bytes.Buffer
	if err := resetTmpl.Execute(&buf, d); err != nil {
		return Message{}, err
	}
	return Message{To: to, Subject: "Restablece tu contraseña", Body: buf.String()}, nil
}

func ReceiptMessage(to string, d ReceiptData) (Message, error) {
	var buf bytes.Buffer
	if err := receiptTmpl.Execute(&buf, d); err != nil {
		return Message{}, err
	}
	return Message{To: to, Subject: "Tu compra: " + d.Product, Body: buf.String()}, nil
}
