package emitter

import (
	"fmt"
	"strings"

	"github.com/pulsar-rules/pulsar/internal/domain"
)

const evaluateSignature = "ctx context.Context, inputs, outputs map[string]float64, buffers *buffer.Manager, publisher domain.MessagePublisher) error"

// fileBuilder accumulates one emitted file's text plus its current line
// count, so rule blocks can be attributed to a precise start/end line range
// for the manifest.
type fileBuilder struct {
	name      string
	text      strings.Builder
	lineCount int
	ruleCount int
}

func (f *fileBuilder) write(s string) {
	f.text.WriteString(s)
	f.lineCount += strings.Count(s, "\n")
}

func (f *fileBuilder) remaining(groupSize int) int {
	return groupSize - f.ruleCount
}

// builder sequences layers into group_size-bounded files, per spec.md §4.4:
// a layer is kept whole in one file if it fits; a layer larger than
// group_size spans multiple per-part files plus a small dispatcher that
// calls each part in turn, since a single Go function body cannot itself
// span files.
type builder struct {
	groupSize     int
	files         []*fileBuilder
	fileSeq       int
	emittedLayers []int // layers actually written by emitLayer, in emission order
}

func newBuilder(groupSize int) *builder {
	return &builder{groupSize: groupSize}
}

func (b *builder) openNewFile() *fileBuilder {
	f := &fileBuilder{name: fmt.Sprintf("gen_%d.go", b.fileSeq)}
	b.fileSeq++
	f.write(packageHeader)
	b.files = append(b.files, f)
	return f
}

// current returns the currently open file, lazily opening the first one.
func (b *builder) current() *fileBuilder {
	if len(b.files) == 0 {
		return b.openNewFile()
	}
	return b.files[len(b.files)-1]
}

func (b *builder) emitLayer(layer int, rs []*domain.RuleIR, blocks map[string]string, ruleLoc map[string]ruleLocation) {
	n := len(rs)
	if n == 0 {
		return
	}
	b.emittedLayers = append(b.emittedLayers, layer)

	if n <= b.groupSize {
		f := b.current()
		if f.remaining(b.groupSize) < n {
			f = b.openNewFile()
		}
		b.writeFunc(f, fmt.Sprintf("EvaluateLayer%d", layer), rs, blocks, ruleLoc)
		f.ruleCount += n
		return
	}

	var partNames []string
	for _, chunk := range chunkRules(rs, b.groupSize) {
		f := b.openNewFile()
		partName := fmt.Sprintf("evaluateLayer%dPart%d", layer, len(partNames))
		b.writeFunc(f, partName, chunk, blocks, ruleLoc)
		f.ruleCount += len(chunk)
		partNames = append(partNames, partName)
	}

	last := b.current()
	last.write(fmt.Sprintf("func EvaluateLayer%d(%s {\n", layer, evaluateSignature))
	for _, p := range partNames {
		last.write(fmt.Sprintf("\tif err := %s(ctx, inputs, outputs, buffers, publisher); err != nil {\n\t\treturn err\n\t}\n", p))
	}
	last.write("\treturn nil\n}\n\n")
}

func (b *builder) writeFunc(f *fileBuilder, name string, rs []*domain.RuleIR, blocks map[string]string, ruleLoc map[string]ruleLocation) {
	f.write(fmt.Sprintf("func %s(%s {\n", name, evaluateSignature))
	for _, r := range rs {
		start := f.lineCount + 1
		for _, line := range strings.Split(strings.TrimRight(blocks[r.Name], "\n"), "\n") {
			f.write("\t" + line + "\n")
		}
		ruleLoc[r.Name] = ruleLocation{file: f.name, startLine: start, endLine: f.lineCount}
	}
	f.write("\treturn nil\n}\n\n")
}

func chunkRules(rs []*domain.RuleIR, size int) [][]*domain.RuleIR {
	var chunks [][]*domain.RuleIR
	for size > 0 && len(rs) > 0 {
		if len(rs) <= size {
			chunks = append(chunks, rs)
			break
		}
		chunks = append(chunks, rs[:size])
		rs = rs[size:]
	}
	return chunks
}

// finish appends the coordinator file and returns every emitted file in
// creation order. Evaluate calls only the layers emitLayer actually wrote
// a function for -- an empty rule set leaves emittedLayers empty, so
// Evaluate becomes a no-op instead of referencing an undefined
// EvaluateLayer0.
func (b *builder) finish() []File {
	coord := &fileBuilder{name: "coordinator.go"}
	coord.write(packageHeader)
	coord.write(fmt.Sprintf("func Evaluate(%s {\n", evaluateSignature))
	for _, layer := range b.emittedLayers {
		coord.write(fmt.Sprintf("\tif err := EvaluateLayer%d(ctx, inputs, outputs, buffers, publisher); err != nil {\n\t\treturn err\n\t}\n", layer))
	}
	coord.write("\treturn nil\n}\n")
	b.files = append(b.files, coord)

	out := make([]File, len(b.files))
	for i, f := range b.files {
		out[i] = File{Name: f.name, Text: f.text.String()}
	}
	return out
}
