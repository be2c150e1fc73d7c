package compiler

import (
	"strings"
	"testing"
)

var sampleCriteria = map[string]string{
	"term":      "dano",
	"proximity": "outro adj6 dano adj2 moral",
	"nested":    "processo (dano moral nao (dano prox100 material)) ou (dano material nao (dano prox100 moral))",
	"quoted":    `(dano adj2 moral adj5 material) ou ("dano moral") ou ("dano material") estético`,
	"long": strings.Repeat("(recurso adj3 especial) ou (agravo prox5 instrumento) nao 25/06/1976 ", 20) +
		"mora* e ca??",
	"contains": strings.Repeat("bla bla bla . blá, blá e [blá]", 20),
}

func BenchmarkCompile(b *testing.B) {
	for name, criteria := range sampleCriteria {
		b.Run(name, func(b *testing.B) {
			b.ReportAllocs()
			b.SetBytes(int64(len(criteria)))
			for i := 0; i < b.N; i++ {
				res, err := Compile(criteria, testOptions)
				if err != nil {
					b.Fatal(err)
				}
				_ = res
			}
		})
	}
}

func BenchmarkCompileParallel(b *testing.B) {
	criteria := sampleCriteria["nested"]
	b.ReportAllocs()
	b.SetBytes(int64(len(criteria)))
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			if _, err := Compile(criteria, testOptions); err != nil {
				b.Error(err)
				return
			}
		}
	})
}

func BenchmarkMarshalRequest(b *testing.B) {
	res, err := Compile(sampleCriteria["long"], testOptions)
	if err != nil {
		b.Fatal(err)
	}
	req := res.HighlightRequest()
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		body := req.Marshal()
		_ = body
	}
}
