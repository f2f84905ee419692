package tokenizer

import (
	"strings"
	"testing"
)

var sampleTexts = map[string]string{
	"short": "The quick brown fox jumps over the lazy dog",
	"medium": `Employees may claim travel expenses within thirty days of the trip.
        Receipts must be attached for every item above twenty dollars, and the
        approving manager signs off before finance reimburses the claim. Claims
        submitted after the deadline are reviewed case by case.`,
	"long": strings.Repeat(`Annual plans can be refunded in full during the first
        fourteen days. After that period the unused months are credited to the
        account instead of refunded. Monthly plans renew automatically and can be
        cancelled at any time from the billing page. Invoices are emailed on the
        first business day of each month. `, 20),
}

func BenchmarkTokenize(b *testing.B) {
	for name, text := range sampleTexts {
		b.Run(name, func(b *testing.B) {
			b.ReportAllocs()
			b.SetBytes(int64(len(text)))
			for i := 0; i < b.N; i++ {
				_ = Tokenize(text)
			}
		})
	}
}

func BenchmarkCounts(b *testing.B) {
	tokens := Tokenize(sampleTexts["long"])
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = Counts(tokens)
	}
}
