package catalog

import (
	"fmt"
	"strings"
)

// Topic is one interview topic offered by a department.
type Topic struct {
	Key   string `yaml:"key"`
	Label string `yaml:"label"`
}

// Tutor is the persona of a department's AI tutor.
type Tutor struct {
	Icon     string `yaml:"icon"`
	Name     string `yaml:"name"`
	Greeting string `yaml:"greeting"`
}

// Department is one entry of the department table.
type Department struct {
	Code     string  `yaml:"code"`
	Name     string  `yaml:"name"`
	Short    string  `yaml:"short"`
	NavLabel string  `yaml:"nav_label"`
	Icon     string  `yaml:"icon"`
	Field    string  `yaml:"field"`
	Tutor    Tutor   `yaml:"tutor"`
	Topics   []Topic `yaml:"topics"`
}

// topicIndent lines option elements up with the topic <select> of the
// interview page template.
const topicIndent = "              "

// Vars returns the placeholder values of d, keyed without braces.
func (d Department) Vars() map[string]string {
	v := map[string]string{
		"dept":       d.Code,
		"code":       strings.ToUpper(d.Code),
		"name":       d.Name,
		"name_lower": strings.ToLower(d.Name),
		"short":      d.Short,
		"nav_label":  d.NavLabel,
		"icon":       d.Icon,
		"field":      d.Field,
		"tutor_icon": d.Tutor.Icon,
		"tutor_name": d.Tutor.Name,
		"greeting":   d.Tutor.Greeting,
	}

	options := make([]string, len(d.Topics))
	for i, t := range d.Topics {
		options[i] = fmt.Sprintf(`%s<option value="%s">%s</option>`, topicIndent, t.Key, t.Label)
		v[fmt.Sprintf("topic%d", i+1)] = t.Key
		v[fmt.Sprintf("topic%d_label", i+1)] = t.Label
	}
	v["topic_options"] = strings.Join(options, "\n")
	return v
}

// Department returns the table entry for code.
func (c *Catalog) Department(code string) (Department, bool) {
	for _, d := range c.Departments {
		if d.Code == code {
			return d, true
		}
	}
	return Department{}, false
}

// navLinks renders the department navigation links used by the course pages.
func (c *Catalog) navLinks() string {
	var b strings.Builder
	for i, d := range c.Departments {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, `          <a href="../%s/courses.html" class="dept-nav-link" data-dept="%s">`+"\n", d.Code, d.Code)
		fmt.Fprintf(&b, `            <span class="dept-icon">%s</span>`+"\n", d.Icon)
		fmt.Fprintf(&b, `            <span class="dept-name">%s</span>`+"\n", d.Short)
		b.WriteString(`          </a>`)
	}
	return b.String()
}
