package mapview

import (
	"html/template"
	"strings"

	"github.com/yourorg/flipdash/harvest"
)

// popupTmpl renders the marker popup. All property fields pass through
// html/template so listing text cannot inject markup into the popup.
var popupTmpl = template.Must(template.New("popup").Parse(strings.TrimSpace(`
<div class="popup">
  <strong>{{.Address}}</strong><br>
  ${{printf "%.0f" .Price}}<br>
  {{printf "%.0f" .Beds}} bd | {{printf "%.1f" .Baths}} ba | {{printf "%.0f" .Sqft}} sqft
</div>
`)))

type popupData struct {
	Address string
	Price   float64
	Beds    float64
	Baths   float64
	Sqft    float64
}

// RenderPopup builds the popup HTML for a property marker.
func RenderPopup(p harvest.Property) (string, error) {
	var b strings.Builder
	err := popupTmpl.Execute(&b, popupData{
		Address: p.Address(),
		Price:   p.Price(),
		Beds:    p.Beds,
		Baths:   p.Baths,
		Sqft:    p.Sqft,
	})
	if err != nil {
		return "", err
	}
	return b.String(), nil
}
