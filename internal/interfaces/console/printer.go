package console

import (
	"encoding/json"
	"io"
	"os"

	"unifut/internal/application/futures"
)

// Printer 把 Envelope 以 JSON 打印到终端
type Printer struct {
	out    io.Writer
	indent bool
}

func NewPrinter(indent bool) *Printer {
	return &Printer{out: os.Stdout, indent: indent}
}

// Print 输出一行 JSON；返回 false 表示操作失败
func (p *Printer) Print(env futures.Envelope) (bool, error) {
	var (
		b   []byte
		err error
	)
	if p.indent {
		b, err = json.MarshalIndent(env, "", "  ")
	} else {
		b, err = json.Marshal(env)
	}
	if err != nil {
		return false, err
	}
	b = append(b, '\n')
	if _, err := p.out.Write(b); err != nil {
		return false, err
	}
	return env.OK(), nil
}
