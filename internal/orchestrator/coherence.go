package orchestrator

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/nescampos/ainalyst/internal/agent"
)

// codeBlockRe matches fenced code blocks (``` ... ```).
var codeBlockRe = regexp.MustCompile("(?s)```.*?```")

// versionRe matches patterns like "Node 18.2", "Go 1.22.3", "node v20.x",
// or any word followed by an optional 'v' and a version number.
var versionRe = regexp.MustCompile(`(?i)\b([A-Za-z][A-Za-z0-9_.-]*)\s+v?(\d+\.\d+(?:\.\d+)?(?:\.x)?)\b`)

// CoherenceIssue is a contradiction between two sub-answers.
type CoherenceIssue struct {
	QuestionA   string `json:"questionA"`
	QuestionB   string `json:"questionB"`
	Description string `json:"description"`
}

// CheckCoherence scans the answers for a named thing quoted with different
// version numbers, which usually means the sources disagree or one is out
// of date. Fenced code is ignored. Issues are sorted by name, then version.
func CheckCoherence(answers []agent.SubAnswer) []CoherenceIssue {
	// name -> version -> questions mentioning it, in answer order.
	seen := make(map[string]map[string][]string)

	for _, ans := range answers {
		cleaned := codeBlockRe.ReplaceAllString(ans.Answer, "")
		local := make(map[string]bool)

		for _, m := range versionRe.FindAllStringSubmatch(cleaned, -1) {
			name, version := strings.ToLower(m[1]), m[2]
			if local[name+"@"+version] {
				continue
			}
			local[name+"@"+version] = true

			if seen[name] == nil {
				seen[name] = make(map[string][]string)
			}
			seen[name][version] = append(seen[name][version], ans.Question)
		}
	}

	names := make([]string, 0, len(seen))
	for name, versions := range seen {
		if len(versions) > 1 {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	var issues []CoherenceIssue
	for _, name := range names {
		versions := make([]string, 0, len(seen[name]))
		for v := range seen[name] {
			versions = append(versions, v)
		}
		sort.Strings(versions)

		for i := 0; i < len(versions); i++ {
			for j := i + 1; j < len(versions); j++ {
				a, b := seen[name][versions[i]], seen[name][versions[j]]
				issues = append(issues, CoherenceIssue{
					QuestionA: a[0],
					QuestionB: b[0],
					Description: fmt.Sprintf("%q is cited with conflicting versions: %s (in %s) vs %s (in %s)",
						name, versions[i], strings.Join(a, ", "), versions[j], strings.Join(b, ", ")),
				})
			}
		}
	}
	return issues
}
