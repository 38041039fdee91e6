package agent

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/RodrigoLima82/databricks-assessment-tool/internal/safeio"
)

// tfStats counts exported resources by Terraform type.
type tfStats struct {
	counts map[string]int
	files  int
}

// tfInventory carries the named objects the renderer lists explicitly.
type tfInventory struct {
	Users             []string
	Groups            []string
	Clusters          []string
	Jobs              []string
	Catalogs          []string
	NodeTypes         map[string]int
	NotebookLanguages map[string]int
}

// resourceKinds maps Terraform resource types to the inventory domain
// they roll up under. Anything unlisted still gets counted by its raw
// type in the totals table.
var resourceKinds = map[string]string{
	"databricks_user":                    "identity",
	"databricks_group":                   "identity",
	"databricks_group_member":            "identity",
	"databricks_service_principal":       "identity",
	"databricks_permissions":             "identity",
	"databricks_cluster":                 "compute",
	"databricks_cluster_policy":          "compute",
	"databricks_instance_pool":           "compute",
	"databricks_job":                     "compute",
	"databricks_pipeline":                "compute",
	"databricks_notebook":                "workspace",
	"databricks_repo":                    "workspace",
	"databricks_directory":               "workspace",
	"databricks_workspace_file":          "workspace",
	"databricks_secret":                  "workspace",
	"databricks_secret_scope":            "workspace",
	"databricks_sql_endpoint":            "analytics",
	"databricks_sql_dashboard":           "analytics",
	"databricks_sql_query":               "analytics",
	"databricks_sql_alert":               "analytics",
	"databricks_catalog":                 "unity_catalog",
	"databricks_schema":                  "unity_catalog",
	"databricks_sql_table":               "unity_catalog",
	"databricks_volume":                  "unity_catalog",
	"databricks_grants":                  "unity_catalog",
	"databricks_external_location":       "unity_catalog",
	"databricks_storage_credential":      "unity_catalog",
	"databricks_registered_model":        "unity_catalog",
	"databricks_model_serving":           "analytics",
}

var (
	resourceRe = regexp.MustCompile(`(?m)^resource\s+"([a-z0-9_]+)"\s+"([^"]+)"`)
	attrRes    = map[string]*regexp.Regexp{
		"user_name":    regexp.MustCompile(`user_name\s*=\s*"([^"]+)"`),
		"display_name": regexp.MustCompile(`display_name\s*=\s*"([^"]+)"`),
		"cluster_name": regexp.MustCompile(`cluster_name\s*=\s*"([^"]+)"`),
		"node_type_id": regexp.MustCompile(`node_type_id\s*=\s*"([^"]+)"`),
		"name":         regexp.MustCompile(`(?m)^\s*name\s*=\s*"([^"]+)"`),
		"language":     regexp.MustCompile(`language\s*=\s*"([^"]+)"`),
	}
)

// scanTerraform walks every .tf file under the export root and builds
// resource totals plus the named inventory.
func scanTerraform(fsys *safeio.SafeFS, onLog func(string)) (*tfStats, *tfInventory, error) {
	entries, err := fsys.ReadDir(".")
	if err != nil {
		return nil, nil, fmt.Errorf("reading terraform export dir: %w", err)
	}

	stats := &tfStats{counts: map[string]int{}}
	inv := &tfInventory{
		NodeTypes:         map[string]int{},
		NotebookLanguages: map[string]int{},
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".tf") {
			continue
		}
		data, err := fsys.ReadFile(entry.Name())
		if err != nil {
			return nil, nil, fmt.Errorf("reading %s: %w", entry.Name(), err)
		}
		stats.files++
		scanFile(string(data), stats, inv)
		if onLog != nil {
			onLog(fmt.Sprintf("scanned %s", entry.Name()))
		}
	}
	return stats, inv, nil
}

func scanFile(content string, stats *tfStats, inv *tfInventory) {
	matches := resourceRe.FindAllStringSubmatchIndex(content, -1)
	for i, m := range matches {
		kind := content[m[2]:m[3]]
		stats.counts[kind]++

		// block body runs until the next resource header (or EOF);
		// good enough for attribute sniffing on exporter output
		end := len(content)
		if i+1 < len(matches) {
			end = matches[i+1][0]
		}
		body := content[m[1]:end]

		switch kind {
		case "databricks_user":
			if v := firstAttr(body, "user_name", "display_name"); v != "" {
				inv.Users = append(inv.Users, v)
			}
		case "databricks_group":
			if v := firstAttr(body, "display_name"); v != "" {
				inv.Groups = append(inv.Groups, v)
			}
		case "databricks_cluster":
			if v := firstAttr(body, "cluster_name"); v != "" {
				inv.Clusters = append(inv.Clusters, v)
			}
			if v := firstAttr(body, "node_type_id"); v != "" {
				inv.NodeTypes[v]++
			}
		case "databricks_job":
			if v := firstAttr(body, "name"); v != "" {
				inv.Jobs = append(inv.Jobs, v)
			}
		case "databricks_notebook":
			if v := firstAttr(body, "language"); v != "" {
				inv.NotebookLanguages[strings.ToUpper(v)]++
			}
		case "databricks_catalog":
			if v := firstAttr(body, "name"); v != "" {
				inv.Catalogs = append(inv.Catalogs, v)
			}
		}
	}
}

func firstAttr(body string, keys ...string) string {
	for _, key := range keys {
		if m := attrRes[key].FindStringSubmatch(body); m != nil {
			return m[1]
		}
	}
	return ""
}

func (s *tfStats) total() int {
	n := 0
	for _, c := range s.counts {
		n += c
	}
	return n
}

func (s *tfStats) domain(name string) int {
	n := 0
	for kind, c := range s.counts {
		if resourceKinds[kind] == name {
			n += c
		}
	}
	return n
}

// renderInventory turns the scan results into the inventory report
// section, fully locally (no LLM involved).
func renderInventory(stats *tfStats, inv *tfInventory, p Prompts) string {
	l := p.Labels
	var b strings.Builder

	fmt.Fprintf(&b, "# %s\n\n", p.InventorySection)
	fmt.Fprintf(&b, "## %s\n\n", l.SectionSummary)
	fmt.Fprintf(&b, "- %s: **%d**\n", l.TotalResources, stats.total())
	fmt.Fprintf(&b, "- %s: **%d**\n\n", l.ConfigFiles, stats.files)

	fmt.Fprintf(&b, "| %s | %s |\n|---|---|\n", l.Domain, l.Count)
	for _, domain := range []struct{ key, label string }{
		{"identity", l.SectionIdentity},
		{"compute", l.SectionCompute},
		{"workspace", l.SectionWorkspace},
		{"analytics", l.SectionAnalytics},
		{"unity_catalog", l.SectionUnityCatalog},
	} {
		fmt.Fprintf(&b, "| %s | %d |\n", domain.label, stats.domain(domain.key))
	}
	b.WriteString("\n")

	fmt.Fprintf(&b, "## %s\n\n", l.SectionIdentity)
	writeNamedList(&b, l.Users, inv.Users)
	writeNamedList(&b, l.Groups, inv.Groups)
	fmt.Fprintf(&b, "- %s: %d\n\n", l.Permissions, stats.counts["databricks_permissions"])

	fmt.Fprintf(&b, "## %s\n\n", l.SectionCompute)
	writeNamedList(&b, l.Clusters, inv.Clusters)
	writeCountMap(&b, l.NodeTypes, inv.NodeTypes)
	writeNamedList(&b, l.Jobs, inv.Jobs)
	fmt.Fprintf(&b, "- %s: %d\n\n", l.InstancePools, stats.counts["databricks_instance_pool"])

	fmt.Fprintf(&b, "## %s\n\n", l.SectionWorkspace)
	fmt.Fprintf(&b, "- %s: %d\n", l.Notebooks, stats.counts["databricks_notebook"])
	writeCountMap(&b, l.Languages, inv.NotebookLanguages)
	fmt.Fprintf(&b, "- %s: %d\n", l.Repos, stats.counts["databricks_repo"])
	fmt.Fprintf(&b, "- %s: %d\n\n", l.SecretScopes, stats.counts["databricks_secret_scope"])

	fmt.Fprintf(&b, "## %s\n\n", l.SectionAnalytics)
	fmt.Fprintf(&b, "- %s: %d\n", l.Warehouses, stats.counts["databricks_sql_endpoint"])
	fmt.Fprintf(&b, "- %s: %d\n", l.Dashboards, stats.counts["databricks_sql_dashboard"])
	fmt.Fprintf(&b, "- %s: %d\n", l.Queries, stats.counts["databricks_sql_query"])
	fmt.Fprintf(&b, "- %s: %d\n\n", l.Alerts, stats.counts["databricks_sql_alert"])

	fmt.Fprintf(&b, "## %s\n\n", l.SectionUnityCatalog)
	writeNamedList(&b, l.Catalogs, inv.Catalogs)
	fmt.Fprintf(&b, "- %s: %d\n", l.Schemas, stats.counts["databricks_schema"])
	fmt.Fprintf(&b, "- %s: %d\n", l.Tables, stats.counts["databricks_sql_table"])
	fmt.Fprintf(&b, "- %s: %d\n", l.Volumes, stats.counts["databricks_volume"])
	fmt.Fprintf(&b, "- %s: %d\n", l.Models, stats.counts["databricks_registered_model"])

	return b.String()
}

const maxNamedItems = 50

func writeNamedList(b *strings.Builder, label string, names []string) {
	fmt.Fprintf(b, "- %s: %d\n", label, len(names))
	sorted := append([]string(nil), names...)
	sort.Strings(sorted)
	shown := sorted
	if len(shown) > maxNamedItems {
		shown = shown[:maxNamedItems]
	}
	for _, name := range shown {
		fmt.Fprintf(b, "  - %s\n", name)
	}
	if len(sorted) > maxNamedItems {
		fmt.Fprintf(b, "  - ... (+%d)\n", len(sorted)-maxNamedItems)
	}
}

func writeCountMap(b *strings.Builder, label string, m map[string]int) {
	if len(m) == 0 {
		return
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	fmt.Fprintf(b, "- %s:\n", label)
	for _, k := range keys {
		fmt.Fprintf(b, "  - %s: %d\n", k, m[k])
	}
}
