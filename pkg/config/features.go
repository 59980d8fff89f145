package config

import (
	"phishguard/pkg/features"
)

// 🌐 URL lexical features, in the column order of the URL classifier.
type URLFeatures struct {
	NGrams          float64 `json:"ngrams"`
	Entropy         float64 `json:"entropy"`
	EntropyRelative float64 `json:"entropyRelative"`
	VowelConsonant  float64 `json:"vowel-cons"`
	FirstDigitIndex int     `json:"firstDigitIndex"`
	Length          int     `json:"length"`
	Digits          int     `json:"digits"`
	IP              bool    `json:"ip"`
	Special         bool    `json:"special"`
	Port            bool    `json:"port"`
	Subdomain       int     `json:"subdomain"`
	Common          int     `json:"common"`
	Hyphen          bool    `json:"hyphen"`
	DoubleHyphen    bool    `json:"doubleHyphen"`
	Shortening      bool    `json:"shortening"`
	Abnormal        bool    `json:"abnormal"`
}

// URLColumns is the schema of the URL classifier.
var URLColumns = []string{
	"ngrams", "entropy", "entropyRelative", "vowel-cons", "firstDigitIndex",
	"length", "digits", "ip", "special", "port", "subdomain", "common",
	"hyphen", "doubleHyphen", "shortening", "abnormal",
}

// Row converts the struct into a feature row ordered by URLColumns.
func (uf URLFeatures) Row() features.Row {
	row := make(features.Row, len(URLColumns))
	for i, name := range URLColumns {
		var v float64
		switch name {
		case "ngrams":
			v = uf.NGrams
		case "entropy":
			v = uf.Entropy
		case "entropyRelative":
			v = uf.EntropyRelative
		case "vowel-cons":
			v = uf.VowelConsonant
		case "firstDigitIndex":
			v = float64(uf.FirstDigitIndex)
		case "length":
			v = float64(uf.Length)
		case "digits":
			v = float64(uf.Digits)
		case "ip":
			v = features.Bool(uf.IP)
		case "special":
			v = features.Bool(uf.Special)
		case "port":
			v = features.Bool(uf.Port)
		case "subdomain":
			v = float64(uf.Subdomain)
		case "common":
			v = float64(uf.Common)
		case "hyphen":
			v = features.Bool(uf.Hyphen)
		case "doubleHyphen":
			v = features.Bool(uf.DoubleHyphen)
		case "shortening":
			v = features.Bool(uf.Shortening)
		case "abnormal":
			v = features.Bool(uf.Abnormal)
		}
		row[i] = features.Column{Name: name, Value: features.Finite(v)}
	}
	return row
}

// 📝 Page structure features, in the column order of the content classifier.
type ContentFeatures struct {
	PctExtHyperlinks                   float64        `json:"PctExtHyperlinks"`
	PctExtResourceUrls                 float64        `json:"PctExtResourceUrls"`
	ExtFavicon                         bool           `json:"ExtFavicon"`
	InsecureForms                      bool           `json:"InsecureForms"`
	RelativeFormAction                 bool           `json:"RelativeFormAction"`
	ExtFormAction                      bool           `json:"ExtFormAction"`
	AbnormalFormAction                 bool           `json:"AbnormalFormAction"`
	PctNullSelfRedirectHyperlinks      float64        `json:"PctNullSelfRedirectHyperlinks"`
	FrequentDomainNameMismatch         bool           `json:"FrequentDomainNameMismatch"`
	FakeLinkInStatusBar                bool           `json:"FakeLinkInStatusBar"`
	RightClickDisabled                 bool           `json:"RightClickDisabled"`
	PopUpWindow                        bool           `json:"PopUpWindow"`
	SubmitInfoToEmail                  bool           `json:"SubmitInfoToEmail"`
	IframeOrFrame                      bool           `json:"IframeOrFrame"`
	MissingTitle                       bool           `json:"MissingTitle"`
	ImagesOnlyInForm                   bool           `json:"ImagesOnlyInForm"`
	PctExtResourceUrlsRT               features.Score `json:"PctExtResourceUrlsRT"`
	AbnormalExtFormActionR             features.Score `json:"AbnormalExtFormActionR"`
	ExtMetaScriptLinkRT                features.Score `json:"ExtMetaScriptLinkRT"`
	PctExtNullSelfRedirectHyperlinksRT features.Score `json:"PctExtNullSelfRedirectHyperlinksRT"`

	// Outgoing references of the page. Not part of the classifier input.
	Refs []Ref `json:"refs,omitempty"`
}

// ContentColumns is the schema of the content classifier.
var ContentColumns = []string{
	"PctExtHyperlinks", "PctExtResourceUrls", "ExtFavicon", "InsecureForms",
	"RelativeFormAction", "ExtFormAction", "AbnormalFormAction",
	"PctNullSelfRedirectHyperlinks", "FrequentDomainNameMismatch",
	"FakeLinkInStatusBar", "RightClickDisabled", "PopUpWindow",
	"SubmitInfoToEmail", "IframeOrFrame", "MissingTitle", "ImagesOnlyInForm",
	"PctExtResourceUrlsRT", "AbnormalExtFormActionR", "ExtMetaScriptLinkRT",
	"PctExtNullSelfRedirectHyperlinksRT",
}

// Row converts the struct into a feature row ordered by ContentColumns.
func (cf ContentFeatures) Row() features.Row {
	row := make(features.Row, len(ContentColumns))
	for i, name := range ContentColumns {
		var v float64
		switch name {
		case "PctExtHyperlinks":
			v = cf.PctExtHyperlinks
		case "PctExtResourceUrls":
			v = cf.PctExtResourceUrls
		case "ExtFavicon":
			v = features.Bool(cf.ExtFavicon)
		case "InsecureForms":
			v = features.Bool(cf.InsecureForms)
		case "RelativeFormAction":
			v = features.Bool(cf.RelativeFormAction)
		case "ExtFormAction":
			v = features.Bool(cf.ExtFormAction)
		case "AbnormalFormAction":
			v = features.Bool(cf.AbnormalFormAction)
		case "PctNullSelfRedirectHyperlinks":
			v = cf.PctNullSelfRedirectHyperlinks
		case "FrequentDomainNameMismatch":
			v = features.Bool(cf.FrequentDomainNameMismatch)
		case "FakeLinkInStatusBar":
			v = features.Bool(cf.FakeLinkInStatusBar)
		case "RightClickDisabled":
			v = features.Bool(cf.RightClickDisabled)
		case "PopUpWindow":
			v = features.Bool(cf.PopUpWindow)
		case "SubmitInfoToEmail":
			v = features.Bool(cf.SubmitInfoToEmail)
		case "IframeOrFrame":
			v = features.Bool(cf.IframeOrFrame)
		case "MissingTitle":
			v = features.Bool(cf.MissingTitle)
		case "ImagesOnlyInForm":
			v = features.Bool(cf.ImagesOnlyInForm)
		case "PctExtResourceUrlsRT":
			v = float64(cf.PctExtResourceUrlsRT)
		case "AbnormalExtFormActionR":
			v = float64(cf.AbnormalExtFormActionR)
		case "ExtMetaScriptLinkRT":
			v = float64(cf.ExtMetaScriptLinkRT)
		case "PctExtNullSelfRedirectHyperlinksRT":
			v = float64(cf.PctExtNullSelfRedirectHyperlinksRT)
		}
		row[i] = features.Column{Name: name, Value: features.Finite(v)}
	}
	return row
}

// 🔗 Reference from an analyzed page to another URL.
type Ref struct {
	URL          string `json:"url"`
	IsSameDomain bool   `json:"is_same_domain"`
	IsForm       bool   `json:"is_form"`
	IsAnchor     bool   `json:"is_anchor"`
	IsIframe     bool   `json:"is_iframe"`
}
