package xmltree

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/pgzip"
)

const sampleDoc = `<?xml version="1.0" encoding="UTF-8"?>
<documents>
  <document>
    <title>A Study</title>
    <authors>
      <author><fname>Jane</fname><lname>Doe</lname></author>
      <author><lname>Smith</lname></author>
    </authors>
    <article-id pub-id-type="doi">10.1234/abc</article-id>
    <abstract>Caf&eacute; &amp; bar</abstract>
  </document>
</documents>`

func TestParse_Structure(t *testing.T) {
	root, err := ParseString(sampleDoc)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if root.Name != "documents" {
		t.Errorf("root.Name = %q, want documents", root.Name)
	}

	doc := root.Child("document")
	if doc == nil {
		t.Fatal("Child(document) = nil")
	}
	if got, _ := doc.ChildValue("title"); got != "A Study" {
		t.Errorf("title = %q, want A Study", got)
	}

	authors := doc.Child("authors")
	if got := len(authors.ChildrenNamed("author")); got != 2 {
		t.Fatalf("author count = %d, want 2", got)
	}
	second := authors.ChildAt("author", 1)
	if got, _ := second.ChildValue("lname"); got != "Smith" {
		t.Errorf("second author lname = %q, want Smith", got)
	}
	if authors.ChildAt("author", 2) != nil {
		t.Error("ChildAt(author, 2) should be nil")
	}

	if got := doc.Child("article-id").Attr("pub-id-type"); got != "doi" {
		t.Errorf("pub-id-type = %q, want doi", got)
	}
}

func TestParse_KeepsUnknownEntities(t *testing.T) {
	root, err := ParseString(sampleDoc)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	got, _ := root.Child("document").ChildValue("abstract")
	if got != "Caf&eacute; & bar" {
		t.Errorf("abstract = %q, want %q", got, "Caf&eacute; & bar")
	}
}

func TestParse_Empty(t *testing.T) {
	if _, err := ParseString(""); err != ErrEmptyDocument {
		t.Errorf("Parse(\"\") error = %v, want ErrEmptyDocument", err)
	}
}

func TestNilNodeAccessors(t *testing.T) {
	var n *Node
	if n.Child("x") != nil {
		t.Error("nil.Child() should be nil")
	}
	if n.Attr("x") != "" || n.Value() != "" {
		t.Error("nil accessors should return empty strings")
	}
	if _, ok := n.ChildValue("x"); ok {
		t.Error("nil.ChildValue() should report missing")
	}
}

func TestParseFile_Gzip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "metadata.xml.gz")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	zw := pgzip.NewWriter(f)
	if _, err := zw.Write([]byte(sampleDoc)); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	f.Close()

	root, err := ParseFile(path)
	if err != nil {
		t.Fatalf("ParseFile() error = %v", err)
	}
	if root.Child("document") == nil {
		t.Error("gzip document missing <document>")
	}
}

func TestParseFile_Missing(t *testing.T) {
	if _, err := ParseFile(filepath.Join(t.TempDir(), "nope.xml")); err == nil {
		t.Error("ParseFile() expected error for missing file")
	}
}
