package agent

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/RodrigoLima82/databricks-assessment-tool/internal/safeio"
)

const sampleTF = `
resource "databricks_user" "u1" {
  user_name = "ana@example.com"
}

resource "databricks_user" "u2" {
  display_name = "Bruno"
}

resource "databricks_group" "admins" {
  display_name = "admins"
}

resource "databricks_cluster" "etl" {
  cluster_name = "etl-cluster"
  node_type_id = "m5.xlarge"
}

resource "databricks_job" "nightly" {
  name = "nightly-load"
}

resource "databricks_notebook" "nb" {
  language = "python"
  path     = "/Shared/nb"
}

resource "databricks_catalog" "main" {
  name = "main"
}
`

func tfDir(t *testing.T, files map[string]string) *safeio.SafeFS {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	fsys, err := safeio.NewSafeFS(dir)
	require.NoError(t, err)
	return fsys
}

func TestScanTerraformCountsAndNames(t *testing.T) {
	fsys := tfDir(t, map[string]string{
		"workspace.tf": sampleTF,
		"readme.md":    "not terraform",
	})

	stats, inv, err := scanTerraform(fsys, nil)
	require.NoError(t, err)

	require.Equal(t, 1, stats.files)
	require.Equal(t, 7, stats.total())
	require.Equal(t, 2, stats.counts["databricks_user"])
	require.Equal(t, 3, stats.domain("identity"))
	require.Equal(t, 2, stats.domain("compute"))

	require.ElementsMatch(t, []string{"ana@example.com", "Bruno"}, inv.Users)
	require.Equal(t, []string{"admins"}, inv.Groups)
	require.Equal(t, []string{"etl-cluster"}, inv.Clusters)
	require.Equal(t, []string{"nightly-load"}, inv.Jobs)
	require.Equal(t, []string{"main"}, inv.Catalogs)
	require.Equal(t, map[string]int{"m5.xlarge": 1}, inv.NodeTypes)
	require.Equal(t, map[string]int{"PYTHON": 1}, inv.NotebookLanguages)
}

func TestScanTerraformEmptyDir(t *testing.T) {
	fsys := tfDir(t, nil)
	stats, _, err := scanTerraform(fsys, nil)
	require.NoError(t, err)
	require.Equal(t, 0, stats.files)
	require.Equal(t, 0, stats.total())
}

func TestRenderInventoryHeadings(t *testing.T) {
	fsys := tfDir(t, map[string]string{"workspace.tf": sampleTF})
	stats, inv, err := scanTerraform(fsys, nil)
	require.NoError(t, err)

	p := PromptsFor("en")
	md := renderInventory(stats, inv, p)

	require.Contains(t, md, "# "+p.InventorySection)
	require.Contains(t, md, "## "+p.Labels.SectionIdentity)
	require.Contains(t, md, "## "+p.Labels.SectionUnityCatalog)
	require.Contains(t, md, "Total resources: **7**")
	require.Contains(t, md, "- ana@example.com")
	require.Contains(t, md, "| "+p.Labels.SectionCompute+" | 2 |")
}
