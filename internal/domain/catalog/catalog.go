// Package catalog is the code-defined product list. It is the only place
// prices and tool URLs come from; clients never supply either.
package catalog

import "strings"

// Version changes whenever a price or URL changes so operators can tell which
// catalog a deployment is serving.
const Version = "2024.06.1"

type Product struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	PriceMinor  int64  `json:"priceMinor"`
	Currency    string `json:"currency"`
	ToolURL     string `json:"-"`
	Icon        string `json:"icon"`
	Plan        string `json:"plan"`
}

var products = []Product{
	{
		ID:          "generador-sermones",
		Name:        "Generador de Sermones",
		Description: "Bosquejos y sermones completos a partir de un pasaje bíblico.",
		PriceMinor:  999,
		Currency:    "usd",
		ToolURL:     "https://chatgpt.com/g/g-sermon-generator",
		Icon:        "book-open",
		Plan:        PlanOneTime,
	},
	{
		ID:          "estudio-biblico",
		Name:        "Estudio Bíblico Profundo",
		Description: "Contexto histórico, idiomas originales y preguntas para grupos.",
		PriceMinor:  799,
		Currency:    "usd",
		ToolURL:     "https://chatgpt.com/g/g-bible-study",
		Icon:        "search",
		Plan:        PlanOneTime,
	},
	{
		ID:          "devocional-diario",
		Name:        "Devocional Diario",
		Description: "Devocionales breves para cada día de la semana.",
		PriceMinor:  499,
		Currency:    "usd",
		ToolURL:     "https://chatgpt.com/g/g-daily-devotional",
		Icon:        "sunrise",
		Plan:        PlanOneTime,
	},
	{
		ID:          "consejeria-pastoral",
		Name:        "Consejería Pastoral",
		Description: "Guías de acompañamiento pastoral para situaciones difíciles.",
		PriceMinor:  1299,
		Currency:    "usd",
		ToolURL:     "https://chatgpt.com/g/g-pastoral-care",
		Icon:        "heart-handshake",
		Plan:        PlanOneTime,
	},
	{
		ID:          "planificador-ministerial",
		Name:        "Planificador Ministerial",
		Description: "Calendarios, series de predicación y planes de ministerio.",
		PriceMinor:  899,
		Currency:    "usd",
		ToolURL:     "https://chatgpt.com/g/g-ministry-planner",
		Icon:        "calendar",
		Plan:        PlanOneTime,
	},
}

// All returns a copy of the catalog in display order.
func All() []Product {
	out := make([]Product, len(products))
	copy(out, products)
	return out
}

// Resolve looks a product up by its exact id.
func Resolve(productID string) (Product, bool) {
	for _, p := range products {
		if p.ID == productID {
			return p, true
		}
	}
	return Product{}, false
}

// ResolveTool accepts either a product id or its display name, ignoring case
// and surrounding whitespace. The external tool's backend only knows the name.
func ResolveTool(idOrName string) (Product, bool) {
	key := strings.TrimSpace(idOrName)
	if key == "" {
		return Product{}, false
	}
	if p, ok := Resolve(key); ok {
		return p, true
	}
	for _, p := range products {
		if strings.EqualFold(p.ID, key) || strings.EqualFold(p.Name, key) {
			return p, true
		}
	}
	return Product{}, false
}
