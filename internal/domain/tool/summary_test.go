package tool

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSummarizer_RendersEveryLanguage(t *testing.T) {
	t.Parallel()

	s := NewSummarizer(DefaultSummaryLangs)
	got := s.Render(Msg(msgQuote, "buy", "1.000000", "2.000000", "0.5000"))

	assert.Equal(t, "Quote buy: in 1.000000, out 2.000000, impact 0.5000%", got["en"])
	assert.Equal(t, "报价 buy：输入 1.000000，输出 2.000000，价格影响 0.5000%", got["zh"])
	assert.Len(t, got, 2)
}

func TestSummarizer_TranslatesNestedMessages(t *testing.T) {
	t.Parallel()

	s := NewSummarizer([]string{"en", "zh"})
	got := s.Render(Msg(msgTxConfirmed, Msg(msgUnknownTime)))

	assert.Equal(t, "Transaction confirmed at unknown", got["en"])
	assert.Equal(t, "交易已确认，时间 未知", got["zh"])
	assert.Equal(t, got["en"], s.Primary(Msg(msgTxConfirmed, Msg(msgUnknownTime))))
}

func TestSummarizer_LanguageSelection(t *testing.T) {
	t.Parallel()

	only := NewSummarizer([]string{" en "})
	assert.Equal(t, Summary{"en": msgTransferCreated}, only.Render(Msg(msgTransferCreated)))

	fallback := NewSummarizer([]string{"!!", ""})
	assert.Len(t, fallback.Render(Msg(msgTransferCreated)), 2)
}

func TestSummarizer_FailureMessage(t *testing.T) {
	t.Parallel()

	got := NewSummarizer(nil).Render(Msg(msgFailure, CodeToolNotFound, "tool not found"))
	assert.Equal(t, "Request failed (TOOL_NOT_FOUND): tool not found", got["en"])
	assert.Equal(t, "请求失败（TOOL_NOT_FOUND）：tool not found", got["zh"])
}
