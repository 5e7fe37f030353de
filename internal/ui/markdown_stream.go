package ui

import (
	"regexp"
	"strings"

	"vpnarch/internal/highlight"
)

// RenderedBlock is a complete line of prose or a closed code block.
type RenderedBlock struct {
	Content  string
	IsCode   bool
	Language string
	Filename string
}

// MarkdownStreamParser splits streamed guide text into blocks, holding back
// partial lines and open code fences until they are complete.
type MarkdownStreamParser struct {
	buffer       strings.Builder
	highlighter  *highlight.Highlighter
	inCodeBlock  bool
	codeLanguage string
	codeFilename string
	codeContent  strings.Builder
	styles       *Styles
}

// codeFenceRegex matches an opening fence: ```lang, ```lang:file or ```lang file
var codeFenceRegex = regexp.MustCompile("^```([\\w+#.-]*)(?:[: ]+(.+))?$")

// NewMarkdownStreamParser creates a parser highlighting code in codeStyle.
func NewMarkdownStreamParser(styles *Styles, codeStyle string) *MarkdownStreamParser {
	return &MarkdownStreamParser{
		highlighter: highlight.New(codeStyle),
		styles:      styles,
	}
}

// Feed consumes one fragment and returns the blocks it completed.
func (p *MarkdownStreamParser) Feed(chunk string) []RenderedBlock {
	p.buffer.WriteString(chunk)
	content := p.buffer.String()

	end := strings.LastIndexByte(content, '\n')
	if end < 0 {
		return nil
	}
	complete := content[:end]
	p.buffer.Reset()
	p.buffer.WriteString(content[end+1:])

	var blocks []RenderedBlock
	for _, line := range strings.Split(complete, "\n") {
		if block, ok := p.feedLine(line); ok {
			blocks = append(blocks, block)
		}
	}
	return blocks
}

func (p *MarkdownStreamParser) feedLine(line string) (RenderedBlock, bool) {
	trimmed := strings.TrimSpace(line)

	if p.inCodeBlock {
		if trimmed != "```" {
			p.codeContent.WriteString(line)
			p.codeContent.WriteByte('\n')
			return RenderedBlock{}, false
		}
		return p.closeCodeBlock(), true
	}

	if m := codeFenceRegex.FindStringSubmatch(trimmed); m != nil {
		p.inCodeBlock = true
		p.codeLanguage = m[1]
		p.codeFilename = strings.TrimSpace(m[2])
		p.codeContent.Reset()
		return RenderedBlock{}, false
	}
	return RenderedBlock{Content: line + "\n"}, true
}

func (p *MarkdownStreamParser) closeCodeBlock() RenderedBlock {
	block := RenderedBlock{
		Content:  strings.TrimSuffix(p.codeContent.String(), "\n"),
		IsCode:   true,
		Language: p.codeLanguage,
		Filename: p.codeFilename,
	}
	p.inCodeBlock = false
	p.codeLanguage = ""
	p.codeFilename = ""
	p.codeContent.Reset()
	return block
}

// Flush returns whatever is still held back, including an unterminated
// code block.
func (p *MarkdownStreamParser) Flush() []RenderedBlock {
	var blocks []RenderedBlock

	if rest := p.buffer.String(); rest != "" {
		p.buffer.Reset()
		if p.inCodeBlock && strings.TrimSpace(rest) != "```" {
			p.codeContent.WriteString(rest)
		} else if !p.inCodeBlock {
			blocks = append(blocks, RenderedBlock{Content: rest})
		}
	}
	if p.inCodeBlock {
		if block := p.closeCodeBlock(); block.Content != "" {
			blocks = append(blocks, block)
		}
	}
	return blocks
}

// Reset clears the parser state.
func (p *MarkdownStreamParser) Reset() {
	p.buffer.Reset()
	p.inCodeBlock = false
	p.codeLanguage = ""
	p.codeFilename = ""
	p.codeContent.Reset()
}

// RenderBlock renders prose unchanged and code blocks highlighted under a
// header naming the language and file.
func (p *MarkdownStreamParser) RenderBlock(block RenderedBlock, width int) string {
	if !block.IsCode {
		return block.Content
	}

	lang := block.Language
	if lang == "" && block.Filename != "" {
		lang = p.highlighter.DetectLanguage(block.Filename)
	}

	body := block.Content
	if lang != "" {
		body = p.highlighter.Highlight(block.Content, lang)
	}

	var label []string
	if lang != "" {
		label = append(label, lang)
	}
	if block.Filename != "" {
		label = append(label, block.Filename)
	}

	if width < 20 {
		width = 20
	}
	var b strings.Builder
	header := "── "
	if len(label) > 0 {
		header += strings.Join(label, " · ") + " "
	}
	if pad := width - len([]rune(header)); pad > 0 {
		header += strings.Repeat("─", pad)
	}
	b.WriteString(p.styles.CodeBlockHeader.Render(header))
	b.WriteByte('\n')
	b.WriteString(strings.TrimRight(body, "\n"))
	b.WriteByte('\n')
	b.WriteString(p.styles.Dim.Render(strings.Repeat("─", width)))
	b.WriteByte('\n')
	return b.String()
}
