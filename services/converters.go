package services

import "inventory-sync/models"

// categoryTable maps scraped categories to form segment names. A listing
// without a category goes to the large segment.
var categoryTable = map[string]string{
	"":     "중대형",
	"대형차":  "중대형",
	"중형차":  "중대형",
	"경차":   "경소형",
	"소형차":  "경소형",
	"준중형차": "준중형",
	"승합차":  "승합",
	"화물차":  "화물/버스",
	"버스":   "화물/버스",
	"특장차":  "화물/버스",
	"RV":   "SUV/RV",
	"SUV":  "SUV/RV",
	"스포츠카": "스포츠카",
}

type company struct {
	name   string
	origin models.Origin
}

func domestic(name string) company { return company{name: name, origin: models.Domestic} }
func imported(name string) company { return company{name: name, origin: models.Imported} }

// companyTable maps scraped manufacturer names to canonical form names.
var companyTable = map[string]company{
	"기아":      domestic("기아"),
	"현대":      domestic("현대"),
	"쌍용":      domestic("쌍용"),
	"삼성":      domestic("삼성"),
	"쉐보레(대우)": domestic("쉐보레(대우)"),

	"렉서스":   imported("렉서스"),
	"벤츠":    imported("벤츠"),
	"아우디":   imported("아우디"),
	"미니":    imported("미니"),
	"테슬라":   imported("테슬라"),
	"포드":    imported("포드"),
	"캐딜락":   imported("캐딜락"),
	"푸조":    imported("푸조"),
	"지프":    imported("지프"),
	"포르쉐":   imported("포르쉐"),
	"혼다":    imported("혼다"),
	"링컨":    imported("링컨"),
	"도요타":   imported("도요타"),
	"벤틀리":   imported("벤틀리"),
	"BMW":   imported("BMW"),
	"크라이슬러": imported("크라이슬러"),
	"랜드로버":  imported("랜드로버"),
	"닛산":    imported("닛산"),
	"볼보":    imported("볼보"),
	"폭스바겐":  imported("폭스바겐"),
	"인피니티":  imported("인피니티"),

	"르노(삼성)":       domestic("삼성"),
	"쉐보레":          domestic("쉐보레(대우)"),
	"대창모터스":        domestic(etcName),
	"대우버스":         domestic(etcName),
	"세보모빌리티(캠시스)":  domestic(etcName),
	"한국상용트럭":       domestic(etcName),

	"토요타":         imported("도요타"),
	"재규어":         imported(etcName),
	"시트로엥":        imported(etcName),
	"미쯔비시":        imported(etcName),
	"피아트":         imported(etcName),
	"북기은상":        imported(etcName),
	"다이하쯔":        imported(etcName),
	"스마트":         imported(etcName),
	"타타대우":        imported(etcName),
	"스바루":         imported(etcName),
	"마세라티":        imported(etcName),
	"스즈키":         imported(etcName),
	"사브":          imported(etcName),
	"닷지":          imported(etcName),
	"쯔더우(쎄미시스코)":  imported(etcName),
	"DFSK(동풍자동차)": imported(etcName),
	"만트럭":         imported(etcName),
	"포톤":          imported(etcName),
}

// etcName is the catch-all manufacturer entry of the form.
const etcName = "기타"

// detailAliases rewrite detail model names into the spelling titles use.
var detailAliases = map[string]string{
	"봉고III":   "봉고Ⅲ",
	"더뉴봉고III": "더 뉴봉고Ⅲ",
	"봉고IIIEV": "봉고ⅢEV",
	"올뉴모닝JA":  "올뉴모닝(JA)",
	"캡처":      "캡쳐",
}

func segmentFor(rawCategory string) (string, bool) {
	s, ok := categoryTable[rawCategory]
	return s, ok
}

func companyFor(rawManufacturer string) (company, bool) {
	c, ok := companyTable[rawManufacturer]
	return c, ok
}

// detailMatchName is the whitespace-free spelling a detail model is matched by.
func detailMatchName(name string) string {
	if alias, ok := detailAliases[name]; ok {
		name = alias
	}
	return stripSpaces(name)
}
