package automation

import "fmt"

// Login page.
const (
	loginIDInput     = "#content > form > fieldset > div.form_inputbox > div:nth-child(1) > input"
	loginPWInput     = "#content > form > fieldset > div.form_inputbox > div:nth-child(3) > input"
	loginSubmitInput = "#content > form > fieldset > span > input"
)

// Manage list.
const (
	managePagination    = "#_carManagement > div > *"
	manageTable         = "#_carManagement > table"
	manageRows          = "#_carManagement > table > tbody > tr"
	manageRowID         = "td.photo > a > span"
	manageRowCheckbox   = "td.align-c > input[type=checkbox]"
	manageDeleteButton  = "#searchListForm > div.menu-bar.mylist_toolbar.clearfix > div > button.btn_del"
	manageConfirmButton = "#fallr-button-confirmButton2"
)

// Registration form.
const (
	formBase = "#post-form > table:nth-child(10) > tbody > tr"

	originLabelBase  = formBase + ":nth-child(2) > td > p > label"
	segmentLabelBase = formBase + ":nth-child(1) > td > label"

	companyItems   = "#categoryId > dl.ct_a > dd > ul > li"
	modelItems     = "#categoryId > dl.ct_b > dd > ul > li"
	detailItems    = "#categoryId > dl.ct_c > dd > ul > li"
	freeTitleInput = "#model-name-display > input"

	plateInput              = formBase + ":nth-child(7) > td > input"
	yearSelect              = formBase + ":nth-child(8) > td > select.cof-select.cof-select-year.cof-form.cof-select-done"
	monthSelect             = formBase + ":nth-child(8) > td > select.cof-select.cof-select-month.cof-form.cof-select-done"
	mileageInput            = formBase + ":nth-child(9) > td > input"
	gearboxLabelBase        = formBase + ":nth-child(10) > td > label"
	displacementInput       = formBase + ":nth-child(11) > td > input"
	fuelSelect              = formBase + ":nth-child(13) > td > select"
	accidentLabelBase       = formBase + ":nth-child(16) > td > label"
	accidentNoteTextarea    = "#accident-display > textarea"
	presentationNumberInput = formBase + ":nth-child(17) > td > input"
	priceInput              = formBase + ":nth-child(19) > td > input"

	liabilityBase = "#post-form > table:nth-child(15) > tbody > tr"

	colorToggle    = "#carColorItem_title"
	colorList      = "#carColorItem_child > ul"
	colorItemBase  = "#carColorItem_child > ul > li"
	colorNoteInput = "#color-etc-display > input"

	descriptionTextarea = "#post-form > div.description > textarea"

	imageFileInput    = "#file_image"
	imageRegisterBtn  = "#post-form > div:nth-child(21) > div.photo_view.clearfix > div > span.custom-button-box > label:nth-child(1)"
	imageFirstPreview = "#post-form > div:nth-child(19) > div.photo_view.clearfix > div > ul > li:nth-child(1) > img"
	submitButton      = "#post-form > div.submit_area > input.cof-btn.cof-btn-large.btn_add"
)

var segmentPositions = map[string]int{
	"경소형":   1,
	"준중형":   2,
	"중대형":   3,
	"스포츠카":  4,
	"SUV/RV": 5,
	"승합":    6,
	"화물/버스": 7,
}

var gearboxPositions = map[string]int{"auto": 1, "manual": 2, "cvt": 3, "semi_auto": 4}

var colorPositions = map[string]int{
	"black": 2, "rat": 3, "silver": 4, "silvergrey": 5, "white": 6, "pearl": 7, "galaxy": 8,
	"brown": 12, "gold": 13, "blue": 14, "sky": 15, "green": 17, "peagreen": 18, "emerald": 19,
	"red": 20, "orange": 21, "violet": 23, "pink": 24, "yellow": 25, "etc": 26,
}

func nth(base string, n int) string {
	return fmt.Sprintf("%s:nth-child(%d)", base, n)
}

func originLabel(domestic bool) string {
	if domestic {
		return nth(originLabelBase, 1)
	}
	return nth(originLabelBase, 2)
}

func segmentLabel(name string) (string, error) {
	n, ok := segmentPositions[name]
	if !ok {
		return "", fmt.Errorf("automation: no form segment %q", name)
	}
	return nth(segmentLabelBase, n), nil
}

func gearboxLabel(code string) string {
	n, ok := gearboxPositions[code]
	if !ok {
		n = 1
	}
	return nth(gearboxLabelBase, n)
}

func colorItem(code string) string {
	n, ok := colorPositions[code]
	if !ok {
		n = colorPositions["etc"]
	}
	return nth(colorItemBase, n)
}

func accidentLabel(yes bool) string {
	if yes {
		return nth(accidentLabelBase, 1)
	}
	return nth(accidentLabelBase, 2)
}

// liabilityLabel selects the seizure (row 1) or mortgage (row 2) radio.
func liabilityLabel(row int, present bool) string {
	n := 1
	if present {
		n = 2
	}
	return fmt.Sprintf("%s:nth-child(%d) > td > label:nth-child(%d)", liabilityBase, row, n)
}

func byValue(items, value string) string {
	return items + ".cateid-" + value
}
