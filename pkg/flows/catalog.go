package flows

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/aretw0/slotflow/pkg/domain"
	"github.com/aretw0/slotflow/pkg/fieldpath"
	"github.com/aretw0/slotflow/pkg/ports"
	"github.com/spf13/cast"
)

const (
	catalogHeader = "Here are the available services for your vehicle:\n\n"
	catalogFooter = "Please reply with the service number you'd like to book, or ask me for more details about any service."
	catalogEmpty  = "Sorry, no services are available for your vehicle type at the moment."

	descriptionLimit = 80
)

// CatalogMessage renders the numbered service list stored at optionsPath.
// Each option is a record with product_name, base_price and description.
func CatalogMessage(optionsPath string) ports.MessageBuilder {
	path := fieldpath.MustParse(optionsPath)
	return ports.MessageBuilderFunc(func(st *domain.State) (string, error) {
		services := asList(st.Get(path))
		if len(services) == 0 {
			return catalogEmpty, nil
		}

		var b strings.Builder
		b.WriteString(catalogHeader)
		for i, s := range services {
			rec, _ := s.(map[string]any)
			name := cast.ToString(rec["product_name"])
			if name == "" {
				name = "Service"
			}
			fmt.Fprintf(&b, "%d. *%s* - ₹%s\n", i+1, name, cast.ToString(rec["base_price"]))
			if desc := cast.ToString(rec["description"]); desc != "" {
				fmt.Fprintf(&b, "   %s\n", truncate(desc, descriptionLimit))
			}
			b.WriteString("\n")
		}
		b.WriteString(catalogFooter)
		return b.String(), nil
	})
}

// ConfirmationMessage acknowledges the service stored at selectedPath.
func ConfirmationMessage(selectedPath string) ports.MessageBuilder {
	path := fieldpath.MustParse(selectedPath)
	return ports.MessageBuilderFunc(func(st *domain.State) (string, error) {
		rec, ok := st.Get(path).(map[string]any)
		if !ok {
			return "", fmt.Errorf("no service selected at %s", path)
		}
		return fmt.Sprintf("Great choice! You selected *%s* (₹%s). We'll confirm your booking shortly.",
			cast.ToString(rec["product_name"]), cast.ToString(rec["base_price"])), nil
	})
}

func truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	return string([]rune(s)[:limit]) + "..."
}
