package extract

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustDoc(t *testing.T, raw string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw))
	require.NoError(t, err)
	return doc
}

func loadFixture(t *testing.T) *goquery.Document {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("testdata", "office.html"))
	require.NoError(t, err)
	return mustDoc(t, string(data))
}

func TestExtract_Fixture(t *testing.T) {
	t.Parallel()

	got := Default().Extract(loadFixture(t)).Map()

	want := map[string]string{
		"Address 1":        "136 N Court St Suite 106 Prattville, AL 36067",
		"Email 1":          "elections@autauga.example",
		"Website 1":        "https://www.autauga.example/elections",
		"Phone 1":          "(334) 361-1444",
		"Fax 1":            "(334) 361-1455",
		"Address 2":        "PO Box 1234 Prattville, AL 36068",
		"Official 1 Title": "Judge of Probate",
		"Official 1 Name":  "Jane Doe",
		"Official 1 Phone": "(334) 361-1400",
		"Official 1 Email": "jdoe@autauga.example",
		"Official 2 Title": "Absentee Election Manager",
		"Official 2 Name":  "John Roe",
		"Official 2 Fax":   "(334) 361-1499",
	}
	assert.Equal(t, want, got)
}

func TestExtract_EmissionOrder(t *testing.T) {
	t.Parallel()

	names := Default().Extract(loadFixture(t)).Names()
	assert.Equal(t, []string{
		"Address 1", "Email 1", "Website 1", "Phone 1", "Fax 1",
		"Address 2",
		"Official 1 Title", "Official 1 Name", "Official 1 Phone", "Official 1 Email",
		"Official 2 Title", "Official 2 Name", "Official 2 Fax",
	}, names)
}

func TestExtract_AbsentEmailProducesNoKey(t *testing.T) {
	t.Parallel()

	doc := mustDoc(t, `<div class="office-addresses">
		<div class="address"><p class="physical">1 First St</p><a href="mailto:a@x.org">a@x.org</a></div>
		<div class="address"><p class="physical">2 Second St</p></div>
		<div class="address"><p class="physical">3 Third St</p><a href="mailto:c@x.org">c@x.org</a></div>
	</div>`)

	got := Default().Extract(doc).Map()

	assert.Equal(t, "1 First St", got["Address 1"])
	assert.Equal(t, "2 Second St", got["Address 2"])
	assert.Equal(t, "3 Third St", got["Address 3"])
	assert.Equal(t, "a@x.org", got["Email 1"])
	assert.Equal(t, "c@x.org", got["Email 3"])
	_, ok := got["Email 2"]
	assert.False(t, ok, "missing email must not produce a key")
}

func TestExtract_FaxBeforePhone(t *testing.T) {
	t.Parallel()

	doc := mustDoc(t, `<div class="office-addresses"><div class="address">
		<a href="tel:555-0100,fax">555-0100</a>
		<a href="tel:555-0199">555-0199</a>
	</div></div>`)

	got := Default().Extract(doc).Map()
	assert.Equal(t, "555-0199", got["Phone 1"])
	assert.Equal(t, "555-0100", got["Fax 1"])
}

func TestExtract_FaxMarkerCaseInsensitive(t *testing.T) {
	t.Parallel()

	doc := mustDoc(t, `<div class="office-addresses"><div class="address">
		<a href="tel:555-0100;FAX">555-0100</a>
	</div></div>`)

	got := Default().Extract(doc).Map()
	assert.Equal(t, "555-0100", got["Fax 1"])
	assert.NotContains(t, got, "Phone 1")
}

func TestExtract_FirstMatchWins(t *testing.T) {
	t.Parallel()

	doc := mustDoc(t, `<div class="office-addresses"><div class="address">
		<a href="mailto:first@x.org">first@x.org</a>
		<a href="mailto:second@x.org">second@x.org</a>
		<a href="/relative">relative</a>
		<a href="http://one.example">one</a>
		<a href="https://two.example">two</a>
	</div></div>`)

	got := Default().Extract(doc).Map()
	assert.Equal(t, "first@x.org", got["Email 1"])
	assert.Equal(t, "http://one.example", got["Website 1"])
}

func TestExtract_IndependentCounters(t *testing.T) {
	t.Parallel()

	doc := mustDoc(t, `
		<div class="office-officials">
			<div class="official"><div class="title-row"><div class="label"><h4>Clerk</h4></div><div class="value">A</div></div></div>
		</div>
		<div class="office-addresses">
			<div class="address"><span class="physical">X</span></div>
			<div class="address"><span class="physical">Y</span></div>
		</div>`)

	fs := Default().Extract(doc)
	assert.Equal(t, 2, fs.Count(GroupAddress))
	assert.Equal(t, 1, fs.Count(GroupOfficial))
	assert.Equal(t, "A", fs.Map()["Official 1 Name"])
}

func TestExtract_Idempotent(t *testing.T) {
	t.Parallel()

	doc := loadFixture(t)
	ex := Default()
	assert.Equal(t, ex.Extract(doc), ex.Extract(doc))
}

func TestExtract_EmptyAndMalformed(t *testing.T) {
	t.Parallel()

	ex := Default()
	assert.Empty(t, ex.Extract(nil))
	assert.Empty(t, ex.ExtractHTML(""))
	assert.Empty(t, ex.ExtractHTML("<html><body><p>No offices here</p></body></html>"))

	got := ex.ExtractHTML(`<div class="office-addresses"><div class="address"><span class="physical">9 Ninth St<div class="official">`).Map()
	assert.Equal(t, "9 Ninth St", got["Address 1"])
}

func TestExtract_NormalizesWhitespace(t *testing.T) {
	t.Parallel()

	doc := mustDoc(t, "<div class=\"office-addresses\"><div class=\"address\"><div class=\"physical\">  12   Elm\n\tSt <br> Town </div></div></div>")
	assert.Equal(t, "12 Elm St Town", Default().Extract(doc).Map()["Address 1"])
}

func TestField_Name(t *testing.T) {
	t.Parallel()

	tests := []struct {
		f    Field
		want string
	}{
		{Field{Group: GroupAddress, Index: 2, Attr: AttrAddress}, "Address 2"},
		{Field{Group: GroupAddress, Index: 1, Attr: AttrFax}, "Fax 1"},
		{Field{Group: GroupOfficial, Index: 1, Attr: AttrPhone}, "Official 1 Phone"},
		{Field{Group: GroupOfficial, Index: 12, Attr: AttrTitle}, "Official 12 Title"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, tt.f.Name())
		})
	}
}
