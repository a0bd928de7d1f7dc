package services

// Option values of the submission form.
const (
	ColorEtc    = "etc"
	AccidentYes = "yes"
	AccidentNo  = "no"

	defaultFuel    = "gasoline"
	defaultGearbox = "auto"
	etcNote        = "-"
)

var fuelCodes = map[string]string{
	"휘발유":   "gasoline",
	"경유":    "diesel",
	"LPG":   "lpg",
	"전기":    "electric",
	"수소":    "hydrogen",
	"CNG":   "cng",
	"하이브리드": "hybrid_gasoline",
	"겸용":    "hybrid_gasoline",
}

var gearboxCodes = map[string]string{
	"오토":   "auto",
	"수동":   "manual",
	"CVT":  "cvt",
	"세미오토": "semi_auto",
}

var colorCodes = map[string]string{
	"검정색": "black", "검정": "black", "검정투톤": "black",
	"흰색": "white", "흰색투톤": "white",
	"진주색": "pearl", "진주투톤": "pearl", "베이지": "pearl",
	"쥐색":  "rat",
	"은하색": "galaxy",
	"은색":  "silver", "은색투톤": "silver", "은회색": "silver",
	"회색": "silvergrey", "회색투톤": "silvergrey", "진회색": "silvergrey", "검정쥐색": "silvergrey",
	"파랑(남색,곤색)": "blue", "청색": "blue", "남색": "blue", "군청색": "blue", "청색투톤": "blue", "진청색": "blue",
	"하늘색": "sky",
	"녹색":  "green", "녹색투톤": "green", "담녹색": "green", "초록(연두)": "green",
	"연두색": "peagreen",
	"청옥색": "emerald",
	"빨강색": "red", "빨강(주홍)": "red", "빨강투톤": "red", "흑장미색": "red",
	"분홍색": "pink",
	"주황색": "orange",
	"노랑":  "yellow", "노란색": "yellow", "겨자색": "yellow",
	"금색": "gold",
	"밤색": "brown", "갈색": "brown", "갈대색": "brown", "갈색(밤색)": "brown",
	"자주색": "violet", "자주(보라)": "violet",
}

// FuelCode maps a scraped fuel type to its form option, defaulting to gasoline.
func FuelCode(fuel string) string {
	if code, ok := fuelCodes[normaliseText(fuel)]; ok {
		return code
	}
	return defaultFuel
}

// GearboxCode maps a scraped gearbox to its form option, defaulting to auto.
func GearboxCode(gearbox string) string {
	if code, ok := gearboxCodes[normaliseText(gearbox)]; ok {
		return code
	}
	return defaultGearbox
}

// ColorCode maps a scraped color to its form option. Unknown colors use
// the "other" option, which needs a note.
func ColorCode(color string) (code, note string) {
	if code, ok := colorCodes[normaliseText(color)]; ok {
		return code, ""
	}
	return ColorEtc, etcNote
}

// AccidentCode maps the accident flag; a reported accident needs a note.
func AccidentCode(hasAccident bool) (code, note string) {
	if hasAccident {
		return AccidentYes, etcNote
	}
	return AccidentNo, ""
}
