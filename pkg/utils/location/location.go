// pkg/utils/location/location.go
package location

import (
	"strings"

	"vidshare_backend/pkg/otp"
)

type State struct {
	Name  string `json:"name"`
	Code  string `json:"code"`
	South bool   `json:"south"`
	// UnionTerritory marks UTs
	UnionTerritory bool `json:"union_territory,omitempty"`
}

var states = []State{
	{Name: "Andhra Pradesh", Code: "AP"},
	{Name: "Arunachal Pradesh", Code: "AR"},
	{Name: "Assam", Code: "AS"},
	{Name: "Bihar", Code: "BR"},
	{Name: "Chhattisgarh", Code: "CG"},
	{Name: "Goa", Code: "GA"},
	{Name: "Gujarat", Code: "GJ"},
	{Name: "Haryana", Code: "HR"},
	{Name: "Himachal Pradesh", Code: "HP"},
	{Name: "Jharkhand", Code: "JH"},
	{Name: "Karnataka", Code: "KA"},
	{Name: "Kerala", Code: "KL"},
	{Name: "Madhya Pradesh", Code: "MP"},
	{Name: "Maharashtra", Code: "MH"},
	{Name: "Manipur", Code: "MN"},
	{Name: "Meghalaya", Code: "ML"},
	{Name: "Mizoram", Code: "MZ"},
	{Name: "Nagaland", Code: "NL"},
	{Name: "Odisha", Code: "OD"},
	{Name: "Punjab", Code: "PB"},
	{Name: "Rajasthan", Code: "RJ"},
	{Name: "Sikkim", Code: "SK"},
	{Name: "Tamil Nadu", Code: "TN"},
	{Name: "Telangana", Code: "TS"},
	{Name: "Tripura", Code: "TR"},
	{Name: "Uttar Pradesh", Code: "UP"},
	{Name: "Uttarakhand", Code: "UK"},
	{Name: "West Bengal", Code: "WB"},
	{Name: "Andaman and Nicobar Islands", Code: "AN", UnionTerritory: true},
	{Name: "Chandigarh", Code: "CH", UnionTerritory: true},
	{Name: "Dadra and Nagar Haveli and Daman and Diu", Code: "DH", UnionTerritory: true},
	{Name: "Delhi", Code: "DL", UnionTerritory: true},
	{Name: "Jammu and Kashmir", Code: "JK", UnionTerritory: true},
	{Name: "Ladakh", Code: "LA", UnionTerritory: true},
	{Name: "Lakshadweep", Code: "LD", UnionTerritory: true},
	{Name: "Puducherry", Code: "PY", UnionTerritory: true},
}

func init() {
	for i := range states {
		states[i].South = otp.IsSouthIndia(states[i].Name)
	}
}

// GetStates returns every state and union territory
func GetStates() []State {
	out := make([]State, len(states))
	copy(out, states)
	return out
}

// Normalize maps a state name or code to its canonical name. Unknown input
// is returned trimmed and ok is false.
func Normalize(input string) (string, bool) {
	s := strings.TrimSpace(input)
	for _, st := range states {
		if strings.EqualFold(st.Name, s) || strings.EqualFold(st.Code, s) {
			return st.Name, true
		}
	}
	return s, false
}
