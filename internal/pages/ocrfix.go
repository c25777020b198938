package pages

import "regexp"

// OCR engines routinely inject spaces into dense technical tokens. The
// rewrites below re-glue the most common casualties in network device
// output: IP addresses, interface names with slot/port numbers, and a
// handful of multi-part command keywords. Best effort only; it runs on
// OCR output, never on natively extracted text.
var spacingFixes = []struct {
	re   *regexp.Regexp
	repl string
}{
	// 192. 168. 1. 1 and 10 .0 .0 .1 style splits.
	{regexp.MustCompile(`\b(\d{1,3})\.\s+(\d{1,3})\.\s+(\d{1,3})\.\s+(\d{1,3})\b`), "$1.$2.$3.$4"},
	{regexp.MustCompile(`\b(\d{1,3})\s+\.(\d{1,3})\s+\.(\d{1,3})\s+\.(\d{1,3})\b`), "$1.$2.$3.$4"},

	// Interface names detached from their unit numbers.
	{regexp.MustCompile(`\b(GigabitEthernet|TenGigabitEthernet|FastEthernet|Ethernet|Serial|Loopback|Tunnel|Vlan|Port-channel)\s+(\d)`), "${1}${2}"},

	// Slot/port numbers split around the slash: 0/ 1, 0 /1.
	{regexp.MustCompile(`(\d)\s+/(\d)`), "$1/$2"},
	{regexp.MustCompile(`(\d)/\s+(\d)`), "$1/$2"},

	// Command keywords broken mid-word.
	{regexp.MustCompile(`\binter\s+face\b`), "interface"},
	{regexp.MustCompile(`\bswitch\s+port\b`), "switchport"},
	{regexp.MustCompile(`\brunning\s+-\s*config\b`), "running-config"},
	{regexp.MustCompile(`\bhost\s+name\b`), "hostname"},
	{regexp.MustCompile(`\bsub\s+net\b`), "subnet"},
}

// FixOCRSpacing applies the corrective rewrite table to OCR output.
func FixOCRSpacing(text string) string {
	for _, f := range spacingFixes {
		text = f.re.ReplaceAllString(text, f.repl)
	}
	return text
}
