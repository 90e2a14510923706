package index

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"unicode"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

const (
	Title       = "Índice de Documentos"
	rowIDPrefix = "file-"
	columnCount = 5
)

// Headers are the fixed column titles in order.
var Headers = []string{"Nombre Original", "Nuevo Nombre (Procesado)", "Resumen", "Estado", "Fecha de Actualización"}

var errNoTable = errors.New("index: no table found")

// RowID derives the row key from an original file name: its letters and digits, prefixed.
func RowID(originalName string) string {
	var b strings.Builder
	b.WriteString(rowIDPrefix)
	for _, r := range originalName {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

type Row struct {
	ID    string
	Cells []string
}

// Table is the parsed body of an index document.
type Table struct {
	Rows []Row
}

func (t *Table) find(id string) int {
	for i, r := range t.Rows {
		if r.ID == id {
			return i
		}
	}
	return -1
}

// Row returns the row with id.
func (t *Table) Row(id string) (Row, bool) {
	if i := t.find(id); i >= 0 {
		return t.Rows[i], true
	}
	return Row{}, false
}

// Parse reads the rows of the first table in an index document.
func Parse(r io.Reader) (*Table, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, err
	}
	table := findElement(doc, atom.Table)
	if table == nil {
		return nil, errNoTable
	}
	out := &Table{}
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.DataAtom == atom.Tr {
			id := attr(n, "id")
			if id == "" {
				return // header row
			}
			var cells []string
			for c := n.FirstChild; c != nil; c = c.NextSibling {
				if c.Type == html.ElementNode && c.DataAtom == atom.Td {
					cells = append(cells, strings.TrimSpace(textOf(c)))
				}
			}
			out.Rows = append(out.Rows, Row{ID: id, Cells: cells})
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(table)
	return out, nil
}

func findElement(n *html.Node, a atom.Atom) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == a {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, a); found != nil {
			return found
		}
	}
	return nil
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func textOf(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}

// Render serialises the table as a complete index document.
func (t *Table) Render() ([]byte, error) {
	doc := &html.Node{Type: html.DocumentNode}
	doc.AppendChild(&html.Node{Type: html.DoctypeNode, Data: "html"})

	root := element(atom.Html)
	doc.AppendChild(root)

	head := element(atom.Head)
	head.AppendChild(element(atom.Meta, html.Attribute{Key: "charset", Val: "utf-8"}))
	head.AppendChild(withText(element(atom.Title), Title))
	root.AppendChild(head)

	body := element(atom.Body)
	body.AppendChild(withText(element(atom.H1), Title))
	root.AppendChild(body)

	table := element(atom.Table, html.Attribute{Key: "border", Val: "1"})
	body.AppendChild(table)

	thead := element(atom.Thead)
	headRow := element(atom.Tr)
	for _, h := range Headers {
		headRow.AppendChild(withText(element(atom.Th), h))
	}
	thead.AppendChild(headRow)
	table.AppendChild(thead)

	tbody := element(atom.Tbody)
	for _, r := range t.Rows {
		tr := element(atom.Tr, html.Attribute{Key: "id", Val: r.ID})
		for _, c := range r.Cells {
			tr.AppendChild(withText(element(atom.Td), c))
		}
		tbody.AppendChild(tr)
	}
	table.AppendChild(tbody)

	var buf bytes.Buffer
	if err := html.Render(&buf, doc); err != nil {
		return nil, err
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

func element(a atom.Atom, attrs ...html.Attribute) *html.Node {
	return &html.Node{Type: html.ElementNode, DataAtom: a, Data: a.String(), Attr: attrs}
}

func withText(n *html.Node, text string) *html.Node {
	n.AppendChild(&html.Node{Type: html.TextNode, Data: text})
	return n
}
