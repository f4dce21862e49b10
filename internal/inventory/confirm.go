package inventory

import (
	"fmt"
	"strconv"

	"github.com/vbonduro/farmguide/internal/domain"
)

var verbs = map[domain.Language]map[domain.Action]string{
	domain.English: {
		domain.ActionAdd:    "Added",
		domain.ActionUpdate: "Updated",
		domain.ActionRemove: "Removed",
		domain.ActionUse:    "Used",
	},
	domain.Hindi: {
		domain.ActionAdd:    "जोड़ा गया",
		domain.ActionUpdate: "अपडेट किया गया",
		domain.ActionRemove: "हटाया गया",
		domain.ActionUse:    "इस्तेमाल किया गया",
	},
}

// Confirmation renders a one-line spoken confirmation of an applied command.
func Confirmation(cmd *domain.InventoryCommand, lang domain.Language) string {
	verb := verbs[domain.ParseLanguage(string(lang))][cmd.Action]

	if cmd.Action == domain.ActionRemove {
		if lang == domain.English {
			return fmt.Sprintf("%s %s.", verb, cmd.Name)
		}
		return fmt.Sprintf("%s %s.", cmd.Name, verb)
	}

	amount := FormatQuantity(cmd.Quantity, cmd.Unit)
	if lang == domain.English {
		return fmt.Sprintf("%s %s %s.", verb, amount, cmd.Name)
	}
	return fmt.Sprintf("%s %s %s।", cmd.Name, amount, verb)
}

// FormatQuantity prints q without trailing zeros, followed by unit.
func FormatQuantity(q float64, unit string) string {
	s := strconv.FormatFloat(q, 'f', -1, 64)
	if unit == "" {
		return s
	}
	return s + " " + unit
}
