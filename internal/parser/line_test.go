package parser

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/bujo/internal/models"
)

func TestParseTaskLine_AllMarkers(t *testing.T) {
	task := ParseTaskLine("测试任务 #任务# @L2 @2026-02-24 https://example.com", 1)

	assert.Equal(t, "测试任务", task.Name)
	assert.Equal(t, models.LevelL2, task.Level)
	assert.Equal(t, "2026-02-24", task.Date)
	assert.Empty(t, task.StartDateTime)
	require.Len(t, task.Links, 1)
	assert.Equal(t, "https://example.com", task.Links[0].URL)
	assert.Equal(t, DefaultLinkName, task.Links[0].Name)
	assert.NotNil(t, task.Items)
	assert.Empty(t, task.Items)
	assert.Equal(t, 1, task.LineNumber)
	assert.Regexp(t, regexp.MustCompile(`^task-\d+-[0-9a-z]{9}$`), task.ID)
}

func TestParseTaskLine_Defaults(t *testing.T) {
	task := ParseTaskLine("整理文档 #任务", 3)

	assert.Equal(t, "整理文档", task.Name)
	assert.Equal(t, models.LevelL1, task.Level)
	assert.Empty(t, task.Date)
	assert.Nil(t, task.Links)
}

func TestParseTaskLine_TimeRangeAndLinks(t *testing.T) {
	task := ParseTaskLine("评审 #任务 @L3 @2026-03-01 09:00:00~10:30:00 http://a.example/1 https://b.example/2", 2)

	assert.Equal(t, "评审", task.Name)
	assert.Equal(t, models.LevelL3, task.Level)
	assert.Equal(t, "2026-03-01 09:00:00", task.StartDateTime)
	assert.Equal(t, "2026-03-01 10:30:00", task.EndDateTime)
	require.Len(t, task.Links, 2)
	assert.Equal(t, "http://a.example/1", task.Links[0].URL)
	assert.Equal(t, "https://b.example/2", task.Links[1].URL)
}

func TestParseTaskLine_IDsDiffer(t *testing.T) {
	a := ParseTaskLine("a #任务", 1)
	b := ParseTaskLine("a #任务", 1)
	assert.NotEqual(t, a.ID, b.ID)
}

func TestNewID_UniqueInTightLoop(t *testing.T) {
	seen := make(map[string]struct{}, 1000)
	for i := 0; i < 500; i++ {
		task := ParseTaskLine("a #任务", i)
		item, ok := ParseItemLine("b @2026-02-24", i)
		require.True(t, ok)
		for _, id := range []string{task.ID, item.ID} {
			_, dup := seen[id]
			require.False(t, dup, "duplicate id %s after %d lines", id, i)
			seen[id] = struct{}{}
		}
	}
}

func TestParseItemLine_RangeAndStatus(t *testing.T) {
	item, ok := ParseItemLine("开发完成 @2026-02-24 10:00:00~11:00:00 #done", 5)
	require.True(t, ok)

	assert.Equal(t, "开发完成", item.Content)
	assert.Equal(t, "2026-02-24", item.Date)
	assert.Equal(t, "2026-02-24 10:00:00", item.StartDateTime)
	assert.Equal(t, "2026-02-24 11:00:00", item.EndDateTime)
	assert.Equal(t, models.StatusCompleted, item.Status)
	assert.Equal(t, 5, item.LineNumber)
	assert.Empty(t, item.DocID)
	assert.Regexp(t, regexp.MustCompile(`^item-\d+-[0-9a-z]{9}$`), item.ID)
}

func TestParseItemLine_NoDate(t *testing.T) {
	for _, line := range []string{"只有内容", "@L1 something", "date 2026-02-24 without marker", ""} {
		_, ok := ParseItemLine(line, 1)
		assert.False(t, ok, "line %q", line)
	}
}

func TestParseItemLine_OnlyMarkers(t *testing.T) {
	_, ok := ParseItemLine("@2026-02-24 10:00:00 #done", 1)
	assert.False(t, ok)
}

func TestParseItemLine_SingleTime(t *testing.T) {
	item, ok := ParseItemLine("站会 @2026-02-24 09:30:00", 1)
	require.True(t, ok)
	assert.Equal(t, "2026-02-24 09:30:00", item.StartDateTime)
	assert.Empty(t, item.EndDateTime)
	assert.Equal(t, models.StatusPending, item.Status)
}

func TestParseItemLine_SingleTimeBeforeTildeIsNotATime(t *testing.T) {
	item, ok := ParseItemLine("会议 @2026-02-24 10:00:00~ 待定", 1)
	require.True(t, ok)
	assert.Empty(t, item.StartDateTime)
	assert.Empty(t, item.EndDateTime)
}

func TestParseItemLine_StatusVariants(t *testing.T) {
	cases := map[string]models.ItemStatus{
		"a @2026-02-24 #已完成":   models.StatusCompleted,
		"a @2026-02-24 #abandoned": models.StatusAbandoned,
		"a @2026-02-24 #已放弃":   models.StatusAbandoned,
		"a @2026-02-24":            models.StatusPending,
	}
	for line, want := range cases {
		item, ok := ParseItemLine(line, 1)
		require.True(t, ok, line)
		assert.Equal(t, want, item.Status, line)
		assert.Equal(t, "a", item.Content, line)
	}
}

func TestParseItemLine_FirstDateWins(t *testing.T) {
	item, ok := ParseItemLine("迁移 @2026-01-01 原定 @2026-02-02", 1)
	require.True(t, ok)
	assert.Equal(t, "2026-01-01", item.Date)
	assert.Equal(t, "迁移  原定", item.Content)
}
