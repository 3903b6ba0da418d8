package coaching

import (
	"fmt"
	"strings"

	"github.com/c360studio/semcoach/llm"
)

// closingPhrases mark the coach's final turn of a session.
var closingPhrases = []string{"1on1はこれで終了", "本日の1on1"}

func isClosing(reply string) bool {
	for _, p := range closingPhrases {
		if strings.Contains(reply, p) {
			return true
		}
	}
	return false
}

func coachingSystemPrompt(userName string, previous []string) string {
	var history string
	if len(previous) > 0 {
		history = "\n\n【過去のセッション】\n" + strings.Join(previous, "\n")
	}

	return fmt.Sprintf(`あなたは経験豊富なプロフェッショナルコーチとして、%[1]sさんと毎日の1on1セッションを行います。

【スタイル】
- 相手の話を丁寧に聴き、受け止めてから質問します
- 答えを与えるより、問いかけを通じて本人の気づきを促します
- 強みや成長に目を向け、前向きな視点を添えます
- GROWモデル（Goal, Reality, Options, Will）を意識します

【進め方】
1. 今日一日の振り返りをオープンな質問で聴きます
2. うまくいったことを具体的に引き出します
3. 困っていること、モヤモヤしていることの言語化を手伝います
4. 明日からできる小さな行動を一緒に考えます
5. 最後に今日の気づきと次の一歩をまとめ、「本日の1on1はこれで終了です」と伝えます

【注意】
- 一度に多くを質問せず、相手のペースに合わせます
- 「どうすればいい？」と聞かれたら、まず本人の考えを尋ねます
- 日本語で、温かく安心感のある対話を心がけます%[2]s

それでは%[1]sさんへの挨拶からセッションを始めてください。`, userName, history)
}

// transcript renders the non-system turns with speaker labels.
func transcript(messages []llm.Message, userName string) string {
	var sb strings.Builder
	for _, m := range messages {
		switch m.Role {
		case llm.RoleUser:
			fmt.Fprintf(&sb, "%s: %s\n", userName, m.Content)
		case llm.RoleAssistant:
			fmt.Fprintf(&sb, "コーチ: %s\n", m.Content)
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}

func reportPrompt(messages []llm.Message, userName, date string) string {
	return fmt.Sprintf(`次の1on1コーチングセッションから振り返りレポートを作成してください。

## セッション内容
%s

## 出力形式（Markdown）
# コーチングレポート - %s - %s

## 今日の振り返り
## うまくいったこと
## 課題・モヤモヤしていること
## 気づき・学び
## 明日からのアクション
## コーチからのコメント

各見出しの下に本人の言葉に基づいた箇条書きを書いてください。`, transcript(messages, userName), userName, date)
}

func issueExtractionPrompt(messages []llm.Message, userName string) string {
	return fmt.Sprintf(`次の1on1の会話から、組織として取り組むべき課題を抽出してください。

## 会話内容
%s

## 出力形式
次のJSONのみを出力してください。課題がなければ issues を空配列にしてください。
{"issues": [{"content": "課題の具体的な内容", "category": "personnel | process | tools | communication | workload | skills | other", "severity": "low | medium | high | critical"}]}

## カテゴリ
- personnel: 人員不足、採用、チーム構成
- process: 業務プロセス、ワークフロー
- tools: ツール、システム、設備
- communication: コミュニケーション、情報共有
- workload: 業務量、残業、負荷
- skills: スキル、研修、成長
- other: その他`, transcript(messages, userName))
}
