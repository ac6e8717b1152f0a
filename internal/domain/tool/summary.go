package tool

import (
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

// Summary keys. The key doubles as the English format string.
// Arguments are always pre-formatted strings so the printer's locale number
// formatting never changes digits between languages.
const (
	msgNetworkOK        = "Network OK (gas parameters fetched)"
	msgBalanceValid     = "USDT balance %s, TRX balance %s. Address check: passed"
	msgBalanceInvalid   = "USDT balance %s, TRX balance %s. Address check: failed"
	msgTxPending        = "Transaction not yet confirmed"
	msgTxConfirmed      = "Transaction confirmed at %s"
	msgProfile          = "Last %s transactions: %s inbound, %s outbound, latest %s"
	msgUnknownTime      = "unknown"
	msgQuote            = "Quote %s: in %s, out %s, impact %s%%"
	msgSplitPlan        = "Split %s: singleImpact=%s%%, splitAvgImpact=%s%%"
	msgUnsignedValid    = "Unsigned transaction verified; ready for signing"
	msgUnsignedInvalid  = "Unsigned transaction has %s issue(s); fix before signing"
	msgTransferCreated  = "Unsigned transaction created"
	msgTransferRejected = "Failed to create unsigned transaction (upstream validation error)"
	msgFailure          = "Request failed (%s): %s"
)

var zhMessages = map[string]string{
	msgNetworkOK:        "网络正常（已获取 Gas 参数）",
	msgBalanceValid:     "该地址 USDT 余额 %s，TRX 余额 %s。地址校验：通过",
	msgBalanceInvalid:   "该地址 USDT 余额 %s，TRX 余额 %s。地址校验：失败",
	msgTxPending:        "交易未确认",
	msgTxConfirmed:      "交易已确认，时间 %s",
	msgProfile:          "近 %s 笔交易，入账 %s，出账 %s，最近一笔 %s",
	msgUnknownTime:      "未知",
	msgQuote:            "报价 %s：输入 %s，输出 %s，价格影响 %s%%",
	msgSplitPlan:        "拆单 %s 笔：单笔影响=%s%%，拆单平均影响=%s%%",
	msgUnsignedValid:    "未签名交易校验通过，可用于后续签名流程",
	msgUnsignedInvalid:  "未签名交易存在 %s 项风险，请修正后再签名",
	msgTransferCreated:  "已生成未签名交易对象",
	msgTransferRejected: "创建未签名交易失败（上游校验错误）",
	msgFailure:          "请求失败（%s）：%s",
}

// DefaultSummaryLangs are the languages every envelope summary carries.
var DefaultSummaryLangs = []string{"zh", "en"}

// Summarizer renders Messages into every configured language.
type Summarizer struct {
	langs    []string
	printers []*message.Printer
}

func NewSummarizer(langs []string) *Summarizer {
	cat := catalog.NewBuilder(catalog.Fallback(language.English))
	for key, zh := range zhMessages {
		_ = cat.SetString(language.English, key, key)
		_ = cat.SetString(language.Chinese, key, zh)
	}

	s := &Summarizer{}
	for _, lang := range langs {
		lang = strings.TrimSpace(lang)
		tag, err := language.Parse(lang)
		if err != nil {
			continue
		}
		s.langs = append(s.langs, lang)
		s.printers = append(s.printers, message.NewPrinter(tag, message.Catalog(cat)))
	}
	if len(s.langs) == 0 {
		return NewSummarizer(DefaultSummaryLangs)
	}
	return s
}

// Render produces one summary line per language.
func (s *Summarizer) Render(m Message) Summary {
	out := make(Summary, len(s.langs))
	for i, lang := range s.langs {
		p := s.printers[i]
		args := make([]any, len(m.Args))
		for j, a := range m.Args {
			// Nested messages (e.g. "unknown") are translated with the same printer.
			if nested, ok := a.(Message); ok {
				args[j] = p.Sprintf(nested.Key, nested.Args...)
				continue
			}
			args[j] = a
		}
		out[lang] = p.Sprintf(m.Key, args...)
	}
	return out
}

// Primary renders m in the first configured language.
func (s *Summarizer) Primary(m Message) string {
	if len(s.langs) == 0 {
		return m.Key
	}
	return s.Render(m)[s.langs[0]]
}
