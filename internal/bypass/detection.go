package bypass

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Page is a rendered document as the browser sees it.
type Page struct {
	URL  string
	HTML string
}

// Detector examines a parsed page to determine if a bot protection mechanism
// challenged the browser.
type Detector func(page Page, doc *goquery.Document) (detected bool, source string)

// Detection is the verdict for a single page.
type Detection struct {
	Detected bool
	Source   string
}

func (d Detection) String() string {
	if !d.Detected {
		return "none"
	}
	return d.Source
}

// DefaultDetectors returns the standard list of challenge detectors.
func DefaultDetectors() []Detector {
	return []Detector{
		detectBing,
		detectCloudflare,
		detectRecaptcha,
		detectHCaptcha,
		detectDataDome,
		detectPerimeterX,
		detectTextual,
	}
}

// Analyze parses page and runs it through detectors, stopping at the first hit.
func Analyze(page Page, detectors []Detector) (Detection, error) {
	if strings.TrimSpace(page.HTML) == "" {
		return Detection{}, nil
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page.HTML))
	if err != nil {
		return Detection{}, fmt.Errorf("bypass: parse page: %w", err)
	}
	for _, d := range detectors {
		if detected, source := d(page, doc); detected {
			return Detection{Detected: true, Source: source}, nil
		}
	}
	return Detection{}, nil
}

func pagePath(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Path)
}

func title(doc *goquery.Document) string {
	return strings.TrimSpace(doc.Find("title").First().Text())
}

// detectBing looks for Bing's "turing" captcha interstitial.
func detectBing(page Page, doc *goquery.Document) (bool, string) {
	if strings.Contains(pagePath(page.URL), "/turing/") {
		return true, "Bing"
	}
	if doc.Find("#turingCaptchaContainer, #b_captcha, iframe[src*='/turing/captcha']").Length() > 0 {
		return true, "Bing"
	}
	return false, ""
}

// detectCloudflare looks for common Cloudflare challenge/block signatures.
func detectCloudflare(_ Page, doc *goquery.Document) (bool, string) {
	t := title(doc)
	if t == "Just a moment..." || strings.Contains(t, "Attention Required! | Cloudflare") {
		return true, "Cloudflare"
	}
	if doc.Find(".cf-turnstile, #challenge-form, #cf-challenge-running, script[src*='challenges.cloudflare.com']").Length() > 0 {
		return true, "Cloudflare"
	}
	return false, ""
}

func detectRecaptcha(_ Page, doc *goquery.Document) (bool, string) {
	if doc.Find(".g-recaptcha, iframe[src*='google.com/recaptcha'], iframe[src*='recaptcha/api2']").Length() > 0 {
		return true, "reCAPTCHA"
	}
	return false, ""
}

func detectHCaptcha(_ Page, doc *goquery.Document) (bool, string) {
	if doc.Find(".h-captcha, iframe[src*='hcaptcha.com']").Length() > 0 {
		return true, "hCaptcha"
	}
	return false, ""
}

func detectDataDome(_ Page, doc *goquery.Document) (bool, string) {
	if doc.Find("iframe[src*='captcha-delivery.com'], script[src*='captcha-delivery.com']").Length() > 0 {
		return true, "DataDome"
	}
	return false, ""
}

// detectPerimeterX looks for PerimeterX (HUMAN) signatures.
func detectPerimeterX(_ Page, doc *goquery.Document) (bool, string) {
	if doc.Find("#px-captcha, script[src*='client.perimeterx.net']").Length() > 0 {
		return true, "PerimeterX"
	}
	return false, ""
}

var blockPhrases = []string{
	"unusual traffic from your computer network",
	"verify you are human",
	"are you a robot",
	"please solve this puzzle",
}

// detectTextual catches generic interstitials by their visible copy.
func detectTextual(_ Page, doc *goquery.Document) (bool, string) {
	text := strings.ToLower(doc.Find("body").Text())
	for _, phrase := range blockPhrases {
		if strings.Contains(text, phrase) {
			return true, "Interstitial"
		}
	}
	return false, ""
}
