package recommend

import (
	"fmt"
	"strings"
)

// reportPrefixRunes bounds how much report text is shown to the model.
const reportPrefixRunes = 2000

func formatIssues(issues []Issue) string {
	if len(issues) == 0 {
		return "（課題なし）"
	}
	var sb strings.Builder
	for i, is := range issues {
		sev := string(is.Severity)
		if sev == "" {
			sev = "unknown"
		}
		fmt.Fprintf(&sb, "%d. [%s] %s\n", i+1, sev, is.Content)
	}
	return strings.TrimRight(sb.String(), "\n")
}

func planningPrompt(report string, issues []Issue) string {
	return fmt.Sprintf(`あなたは社員の成長を支援する学習コンシェルジュです。
以下の日報と課題をもとに、役立つ学習リソース（動画・記事・書籍）を探すための検索クエリを作成してください。

## 日報
%s

## 課題
%s

## 出力形式
必ず次のJSONのみを出力してください。queriesはちょうど5件、それぞれ簡潔な検索語句にしてください。
{"queries": ["クエリ1", "クエリ2", "クエリ3", "クエリ4", "クエリ5"], "focus": "今回重視する学習テーマの要約"}`,
		truncateRunes(report, reportPrefixRunes), formatIssues(issues))
}

func rankingPrompt(report string, issues []Issue, candidates []Candidate) string {
	var sb strings.Builder
	for i, c := range candidates {
		fmt.Fprintf(&sb, "%d. [%s] %s\n   URL: %s\n", i+1, c.Source, c.Title, c.URL)
		if c.Description != "" {
			fmt.Fprintf(&sb, "   説明: %s\n", c.Description)
		}
	}

	return fmt.Sprintf(`あなたは社員の成長を支援する学習コンシェルジュです。
以下の日報と課題に最も役立つ学習リソースを候補の中から最大%d件選んでください。

## 日報
%s

## 課題
%s

## 候補
%s
## 出力形式
必ず次のJSONのみを出力してください。indexは候補の番号です。
{"selections": [{"index": 1, "reason": "この課題に役立つ理由", "targetIssue": "対象の課題"}]}`,
		maxSelections, truncateRunes(report, reportPrefixRunes), formatIssues(issues), sb.String())
}
