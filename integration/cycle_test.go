//go:build basic || database

package integration

import (
	"encoding/json"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/huangsam/pmoinsight/core"
	"github.com/huangsam/pmoinsight/schema"
)

// runCLICycle drives load, rule creation, two generation passes and a
// resolve through the binary against the backend configured in env.
func runCLICycle(t *testing.T, env []string) {
	t.Helper()
	run := func(args ...string) string {
		t.Helper()
		out, err := runCommand(t, env, args...)
		require.NoError(t, err)
		return out
	}
	decode := func(out string, v any) {
		t.Helper()
		require.NoError(t, json.Unmarshal([]byte(out), v), out)
	}

	run("db", "clear")
	assert.Contains(t, run("snapshot", "load", snapshotFixture), "3 projects")

	var rules []schema.Rule
	decode(run("rules", "create", "--name", "Owner required", "--type", "validation",
		"--params", ownerRuleParams, "--output", "json"), &rules)
	require.Len(t, rules, 1)
	assert.Equal(t, schema.ValidationRule, rules[0].RuleType)

	// ITPR-101 and the closed ITPR-090 both lack an owner.
	var first core.GenerateResult
	decode(run("insights", "generate", "--output", "json"), &first)
	require.Len(t, first.Insights, 2)
	assert.Equal(t, 2, first.Run.Created)
	target := findByTitle(t, first.Insights, "Missing owner on ITPR-101")

	var second core.GenerateResult
	decode(run("insights", "generate", "--output", "json"), &second)
	require.Len(t, second.Insights, 2)
	assert.Equal(t, target.ID, findByTitle(t, second.Insights, "Missing owner on ITPR-101").ID)
	assert.Equal(t, 0, second.Run.Created)
	assert.Equal(t, 2, second.Run.Updated)

	var resolved []schema.Insight
	decode(run("insights", "resolve", strconv.FormatInt(target.ID, 10), "--output", "json"), &resolved)
	require.Len(t, resolved, 1)
	assert.True(t, resolved[0].IsResolved)

	var open []schema.Insight
	decode(run("insights", "list", "--resolved", "no", "--output", "json"), &open)
	require.Len(t, open, 1)
	assert.Equal(t, "Missing owner on ITPR-090", open[0].Title)

	var summary schema.DashboardSummary
	decode(run("summary", "--output", "json"), &summary)
	assert.Equal(t, 3, summary.TotalProjects)

	var runs []schema.GenerationRun
	decode(run("db", "runs", "--output", "json"), &runs)
	assert.Len(t, runs, 2)

	assert.Contains(t, run("db", "status"), "Open Insights: 1")

	_, err := runCommand(t, env, "insights", "resolve", "9999")
	assert.Error(t, err)
}

func findByTitle(t *testing.T, insights []schema.Insight, title string) schema.Insight {
	t.Helper()
	for _, in := range insights {
		if in.Title == title {
			return in
		}
	}
	require.Failf(t, "insight not found", "no insight titled %q", title)
	return schema.Insight{}
}
