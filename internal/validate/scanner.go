package validate

import (
	"fmt"
	"regexp"
	"strings"
)

// Rule is one entry of the destructive-pattern catalog.
type Rule struct {
	ID          string
	Description string
	pattern     *regexp.Regexp
}

// Violation is a single rule match inside scanned content.
type Violation struct {
	RuleID      string `json:"ruleId" yaml:"ruleId"`
	Description string `json:"description" yaml:"description"`
	Line        int    `json:"line" yaml:"line"`
}

// String formats the violation without exposing the rule's pattern.
func (v Violation) String() string {
	return fmt.Sprintf("%s at line %d (%s)", v.RuleID, v.Line, v.Description)
}

// Building blocks shared by the catalog.
const (
	// end of a command word: whitespace, end of line, a quote, or a shell operator
	term = `(?:\s|$|["';&|)])`
	// any run of dash-prefixed options
	opts = `(?:-{1,2}[\w-]+\s+)*`
	// recursive flag in short or long form
	recursive = `(?:-[a-z]*r[a-z]*|--recursive)`
	// whole block devices
	blockDev = `/dev/(?:sd[a-z]|vd[a-z]|xvd[a-z]|hd[a-z]|nvme\d+n\d+|mmcblk\d+|md\d+|dm-\d+|mapper/)`
	// an Exec line of the given directive family
	execLine = `^[ \t]*Exec(?:%s)\w*\s*=`
	// shells that accept -c
	shellNames = `sh|bash|dash|zsh|ksh|ash`
	shells     = `(?:` + shellNames + `)`
	// systemctl verb with optional options on both sides
	systemctlVerb = `\bsystemctl\s+` + opts + `(?:%s)\s+` + opts
)

func newRule(id, description, pattern string) Rule {
	return Rule{
		ID:          id,
		Description: description,
		pattern:     regexp.MustCompile(`(?im)` + pattern),
	}
}

// catalog is evaluated in order; every rule runs independently.
var catalog = []Rule{
	newRule("root-delete", "recursive deletion of the root filesystem",
		`\brm\s+`+opts+recursive+`\s+`+opts+`["']?/\*?`+term),
	newRule("critical-dir-delete", "recursive deletion of a critical system directory",
		`\brm\s+`+opts+recursive+`\s+`+opts+`["']?/(?:bin|sbin|lib|lib64|usr|etc|boot|var|opt|root|home)/?\*?`+term),
	newRule("raw-disk-write", "raw write to a block device",
		`(?:\bdd\s+[^\n]*\bof=|>\s*)`+blockDev),
	newRule("disk-format", "formatting or wiping a block device",
		`\b(?:mkfs(?:\.\w+)?|mke2fs|wipefs|mkswap)\s+[^\n]*?`+blockDev),
	newRule("fork-bomb", "fork bomb",
		`(?:[\w:]+\s*\(\s*\)\s*\{\s*[\w:]+\s*\|\s*[\w:]+\s*&|:\s*\(\s*\)\s*\{\s*:\s*\|\s*:\s*;)`),
	newRule("kill-init", "killing the init process",
		`\b(?:kill|killall|pkill)\s+(?:-{1,2}[\w-]+\s+|-s\s+\w+\s+)*(?:systemd|init|1)`+term),
	newRule("mass-kill", "mass process termination",
		`(?:\b(?:killall|pkill)\s+`+opts+`(?:-u\s*(?:root|0)|-1)`+term+`|\bkill\s+(?:-{1,2}[\w-]*\s+)+-1`+term+`)`),
	newRule("remount-root", "remounting the root filesystem read-write",
		`\bmount\s+`+opts+`-o\s*\S*(?:remount\S*\brw|\brw\S*remount)\S*\s+`+opts+`/`+term),
	newRule("mac-disable", "disabling mandatory access control",
		`(?:\bsetenforce\s+(?:0|permissive)\b|\bgetenforce\b[^\n]*\|\s*grep\s+`+opts+`permissive|\baa-teardown\b|`+
			fmt.Sprintf(systemctlVerb, `stop|disable|mask|kill`)+`apparmor(?:\.service)?`+term+`)`),
	newRule("power-command", "reboot or shutdown from an Exec directive",
		fmt.Sprintf(execLine, `\w*`)+`(?:[^\n]*[ \t/"';&|=(])?(?:reboot|shutdown|poweroff|halt|kexec|soft-reboot|(?:tel)?init\s+[06])`+term),
	newRule("power-action", "unit action that reboots or powers off the host",
		`^[ \t]*(?:FailureAction|SuccessAction|StartLimitAction|JobTimeoutAction)\s*=\s*(?:reboot|soft-reboot|poweroff|halt|exit|kexec)[\w-]*\s*$`),
	newRule("systemctl-core", "stopping or isolating the service manager or a core target",
		fmt.Sprintf(systemctlVerb, `stop|restart|kill|isolate`)+
			`(?:systemd[\w-]*|init|dbus|dbus-broker|logind|(?:multi-user|default|graphical|basic|sysinit|rescue|emergency)\.target)(?:\.service|\.socket)?`+term),
	newRule("stop-network", "stopping the network stack",
		`(?:`+fmt.Sprintf(systemctlVerb, `stop|kill|mask`)+`(?:network|networking|NetworkManager|systemd-networkd|wpa_supplicant)(?:\.service)?`+term+
			`|\bservice\s+(?:network|networking|NetworkManager)\s+stop\b|\bnmcli\s+(?:networking|radio\s+all)\s+off\b|\bifdown\s+(?:-a|--all)\b)`),
	newRule("stop-ssh", "stopping or disabling the SSH daemon",
		`(?:`+fmt.Sprintf(systemctlVerb, `stop|disable|mask|kill`)+`sshd?(?:\.service|\.socket)?`+term+`|\bservice\s+sshd?\s+stop\b)`),
	newRule("sudoers-tamper", "modifying sudoers",
		`(?:\b(?:echo|printf|sed|tee|cp|mv|install|ln|chmod|chown)\b[^\n]*?|>\s*)/etc/sudoers`),
	newRule("chmod-critical", "world-writable permissions on a critical directory",
		`\bchmod\s+`+opts+`(?:[0-7]{0,2}[0-7][2367]|(?:ugo|a|o)?\+[rwxXst]*w[rwxXst]*)\s+`+opts+`["']?/(?:(?:etc|root|bin|sbin|usr|lib|lib64|boot|var)(?:/\S*)?)?`+term),
	newRule("account-overwrite", "overwriting the system account databases",
		`(?:\b(?:echo|printf|sed|tee|cp|mv|install|ln|truncate)\b[^\n]*?|>\s*|\bof=)/etc/(?:passwd|shadow|gshadow|group)\b`),
	newRule("exec-shell-chain", "shell command chain in an Exec directive",
		fmt.Sprintf(execLine, `Start|Stop|Reload`)+`[^\n]*\b`+shells+`\s+(?:-\w+\s+)*-\w*c\w*\s+[^\n]*(?:&&|;|\|)`),
	newRule("exec-daemonize", "backgrounding from an Exec directive",
		fmt.Sprintf(execLine, `Start|Stop`)+`[^\n]*(?:[^&>\n]&(?:[^&>]|$)|\bnohup\b|\bsetsid\b|\bdisown\b)`),
	newRule("remote-pipe-shell", "piping a download into a shell",
		`\b(?:curl|wget)\b[^\n|]*\|\s*(?:sudo\s+)?(?:\S*/)?(?:`+shellNames+`|python\d*|perl)\b`),
}

// Rules returns the catalog in evaluation order.
func Rules() []Rule {
	return append([]Rule(nil), catalog...)
}

// Scan evaluates every rule against content and returns all matches ordered
// by rule, then by position. An empty result means no rule matched.
//
// Backslash line continuations are folded before matching so a directive
// split over several lines is seen as one; reported lines refer to content
// as given.
func Scan(content string) []Violation {
	folded := foldContinuations(content)

	var violations []Violation
	for _, rule := range catalog {
		for _, loc := range rule.pattern.FindAllStringIndex(folded, -1) {
			violations = append(violations, Violation{
				RuleID:      rule.ID,
				Description: rule.Description,
				Line:        lineAt(content, loc[0]),
			})
		}
	}
	return violations
}

// RuleIDs returns the distinct rule ids in violations, in order of first appearance.
func RuleIDs(violations []Violation) []string {
	seen := make(map[string]bool, len(violations))
	var ids []string
	for _, v := range violations {
		if !seen[v.RuleID] {
			seen[v.RuleID] = true
			ids = append(ids, v.RuleID)
		}
	}
	return ids
}

// foldContinuations replaces "\\\n" by two spaces, keeping byte offsets intact.
func foldContinuations(content string) string {
	return strings.ReplaceAll(content, "\\\n", "  ")
}

// lineAt returns the 1-based line of byte offset off. A match that starts on
// a line break is attributed to the following line.
func lineAt(content string, off int) int {
	if off < len(content) && content[off] == '\n' {
		off++
	}
	return strings.Count(content[:min(off, len(content))], "\n") + 1
}
