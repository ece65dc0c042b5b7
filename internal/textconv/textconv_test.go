package textconv

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/antchfx/xmlquery"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ulikunitz/xz"

	"github.com/damischa1/plc-textconv/internal/annotate"
	perrors "github.com/damischa1/plc-textconv/internal/errors"
	"github.com/damischa1/plc-textconv/internal/filter"
	"github.com/damischa1/plc-textconv/internal/idnorm"
	"github.com/damischa1/plc-textconv/internal/render"
	"github.com/damischa1/plc-textconv/internal/tree"
)

const project = `<?xml version="1.0" encoding="utf-8"?>
<SoMachineBasicProject>
  <Name>Plant</Name>
  <ProjectId>ID1</ProjectId>
  <IOs><Io><Address>%I0.0</Address><Symbol>START</Symbol></Io></IOs>
  <Pous><Pou><Name>Main</Name><Rungs>
    <RungEntity>
      <Name>Start</Name>
      <LadderElements><LadderEntity><Guid>ID3</Guid><Row>0</Row><Column>3</Column></LadderEntity></LadderElements>
      <Guid>{ID2}</Guid>
      <InstructionLines>
        <InstructionLineEntity><InstructionLine>LD %I0.0</InstructionLine><Comment>ref ID2</Comment></InstructionLineEntity>
        <InstructionLineEntity><InstructionLine>ST    %Q0.0</InstructionLine></InstructionLineEntity>
      </InstructionLines>
    </RungEntity>
    <RungEntity>
      <Name>Stop</Name>
      <InstructionLines>
        <InstructionLineEntity><InstructionLine>LDN %I0.1</InstructionLine></InstructionLineEntity>
        <InstructionLineEntity><InstructionLine>AND( %M0</InstructionLine></InstructionLineEntity>
        <InstructionLineEntity><InstructionLine>OR %M1</InstructionLine></InstructionLineEntity>
        <InstructionLineEntity><InstructionLine>)</InstructionLine></InstructionLineEntity>
        <InstructionLineEntity><InstructionLine>R %Q0.0</InstructionLine></InstructionLineEntity>
      </InstructionLines>
    </RungEntity>
  </Rungs></Pou></Pous>
</SoMachineBasicProject>`

const projectText = `::: Main > Start
    LD %I0.0      [START] (* ref ==0002== *)
    ST %Q0.0
::: Main > Stop
    LDN %I0.1
    AND( %M0
        OR %M1
    )
    R %Q0.0
`

// withIDs fills the ID placeholders of a fixture.
func withIDs(src string, ids ...string) []byte {
	var pairs []string
	for i, id := range ids {
		pairs = append(pairs, "ID"+string(rune('1'+i)), id)
	}
	return []byte(strings.NewReplacer(pairs...).Replace(src))
}

func randomIDs(n int) []string {
	ids := make([]string, n)
	for i := range ids {
		ids[i] = uuid.NewString()
	}
	return ids
}

func TestTransform(t *testing.T) {
	out, err := Transform(withIDs(project, randomIDs(3)...), DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, projectText, string(out))
}

func TestScenarios(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "A: compact unit with two statements",
			in:   `<Project><Program Name="Main" Code="a := 1;&#10;b := 2;"/></Project>`,
			want: "::: Main\n    a := 1;\n    b := 2;\n",
		},
		{
			name: "B: diagram unit is dropped",
			in:   `<Project><Program Name="Ladder" Language="LD" Code="x"/><Program Name="Main" Code="a := 1;"/></Project>`,
			want: "::: Main\n    a := 1;\n",
		},
		{
			name: "C: one identifier three times",
			in: `<Project><Program Name="6f9dac99-8de1-4efc-8465-68ac443b7d08" ` +
				`Code="a := '{6f9dac99-8de1-4efc-8465-68ac443b7d08}';&#10;b := '6F9DAC99-8DE1-4EFC-8465-68AC443B7D08';"/>` +
				`<Program Name="738bea1e-99bb-4f04-90bb-a7a567e74e3a"/></Project>`,
			want: "::: ==0001==\n    a := '{==0001==}';\n    b := '==0001==';\n::: ==0002==\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := Transform([]byte(tt.in), DefaultOptions())
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(out))
		})
	}
}

func TestMethodBodyChangesOutput(t *testing.T) {
	const src = `<project><types><pous><pou name="FB1" pouType="functionBlock">
		<body><ST><xhtml>x := x + 1;</xhtml></ST></body>
		<addData><data name="http://www.3s-software.com/plcopenxml/method">
			<Method name="Reset"><body><ST><xhtml>BODY</xhtml></ST></body></Method>
		</data></addData>
	</pou></pous></types></project>`
	conv := func(body string) string {
		out, err := Transform([]byte(strings.Replace(src, "BODY", body, 1)), DefaultOptions())
		require.NoError(t, err)
		return string(out)
	}

	a := conv("x := 0;")
	b := conv("x := 99; StartMotor();")
	assert.NotEqual(t, a, b)
	assert.Contains(t, a, "::: FB1.Reset\n    x := 0;\n")
	assert.Contains(t, b, "    StartMotor();\n")
}

func TestDeterminism(t *testing.T) {
	in := withIDs(project, randomIDs(3)...)
	for _, f := range []Format{FormatText, FormatXML} {
		opts := Options{Format: f, Symbols: true}
		first, err := Transform(in, opts)
		require.NoError(t, err)
		second, err := Transform(in, opts)
		require.NoError(t, err)
		assert.Equal(t, first, second, f)
	}
}

func TestIdentifierStability(t *testing.T) {
	a := withIDs(project, randomIDs(3)...)
	b := withIDs(project, randomIDs(3)...)
	require.NotEqual(t, a, b)

	for _, f := range []Format{FormatText, FormatXML} {
		opts := Options{Format: f, Symbols: true}
		outA, err := Transform(a, opts)
		require.NoError(t, err)
		outB, err := Transform(b, opts)
		require.NoError(t, err)
		assert.Equal(t, string(outA), string(outB), f)
	}
}

func TestDiagramElision(t *testing.T) {
	ids := randomIDs(3)
	with := withIDs(project, ids...)
	without := withIDs(strings.Replace(project,
		`<LadderElements><LadderEntity><Guid>ID3</Guid><Row>0</Row><Column>3</Column></LadderEntity></LadderElements>`, "", 1), ids...)

	outWith, err := Transform(with, DefaultOptions())
	require.NoError(t, err)
	outWithout, err := Transform(without, DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, string(outWithout), string(outWith))
	assert.NotContains(t, string(outWith), ids[2])
}

func TestContextCoverage(t *testing.T) {
	tests := []struct {
		name    string
		in      []byte
		markers int
	}{
		{"project", withIDs(project, randomIDs(3)...), 2},
		{
			name: "marker lookalikes in content",
			in: []byte(`<Project><Program Name="M" Code="s := 'a\n::: Fake'; x := 1;"/>` +
				`<Program Name="N" Code="t := '&#10;::: Fake&#10;';&#10;(* ::: also fake&#10;*)&#10;y := 2;"/></Project>`),
			markers: 2,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := Transform(tt.in, DefaultOptions())
			require.NoError(t, err)

			doc, err := tree.Parse(tt.in)
			require.NoError(t, err)
			idnorm.Normalize(doc, filter.IsDiagram)
			filter.Apply(doc)
			sections, err := render.Render(doc, render.Options{Symbols: true})
			require.NoError(t, err)
			lines := annotate.Lines(sections)

			var texts []string
			for _, l := range lines {
				texts = append(texts, l.Text)
			}
			require.Equal(t, string(out), strings.Join(texts, "\n")+"\n")

			markers, current := 0, ""
			require.True(t, lines[0].Marker)
			for _, l := range lines {
				if strings.HasPrefix(l.Text, annotate.MarkerPrefix) {
					require.True(t, l.Marker, "content line looks like a marker: %q", l.Text)
					markers++
					current = l.Context
					continue
				}
				assert.False(t, l.Marker)
				assert.True(t, l.Text == "" || strings.HasPrefix(l.Text, "    "), "body line %q", l.Text)
				assert.Equal(t, current, l.Context, l.Text)
			}
			assert.Equal(t, tt.markers, markers)
			assert.Len(t, sections, tt.markers)
		})
	}
}

func TestXMLFormat(t *testing.T) {
	ids := randomIDs(3)
	out, err := Transform(withIDs(project, ids...), Options{Format: FormatXML, Symbols: true})
	require.NoError(t, err)

	doc, err := xmlquery.Parse(bytes.NewReader(out))
	require.NoError(t, err)

	rungs := xmlquery.Find(doc, "//RungEntity")
	require.Len(t, rungs, 2)
	assert.Equal(t, "Main > Start", rungs[0].SelectAttr("ctx"))
	assert.Equal(t, "Main > Stop", rungs[1].SelectAttr("ctx"))
	assert.Empty(t, xmlquery.Find(doc, "//LadderElements"))
	assert.Equal(t, "==0001==", xmlquery.FindOne(doc, "//ProjectId").InnerText())
	assert.Equal(t, "{==0002==}", xmlquery.FindOne(doc, "//RungEntity/Guid").InnerText())
	assert.NotContains(t, string(out), ids[0])
}

func TestFailClosed(t *testing.T) {
	tests := []struct {
		name string
		in   string
		kind error
	}{
		{"truncated", `<Project><Program Name="Main" Code="a := 1;"/>`, perrors.ErrMalformedInput},
		{"unbalanced tags", `<Project><Program></Project>`, perrors.ErrMalformedInput},
		{"empty", ``, perrors.ErrMalformedInput},
		{"unknown encoding", `<?xml version="1.0" encoding="x-klingon"?><Project/>`, perrors.ErrUnsupportedEncoding},
		{"invalid utf-8", "<Project><Program Name=\"M\xff\"/></Project>", perrors.ErrUnsupportedEncoding},
		{"unbalanced logic", `<Project><Program Name="Main" Code="IF a THEN b := 1;"/></Project>`, perrors.ErrInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "in.smbp")
			require.NoError(t, os.WriteFile(path, []byte(tt.in), 0o644))

			var stdout bytes.Buffer
			err := Convert(path, &stdout, DefaultOptions())
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.kind)
			assert.Zero(t, stdout.Len())
		})
	}
}

func TestUnknownFormat(t *testing.T) {
	_, err := Transform([]byte(`<a/>`), Options{Format: "yaml"})
	assert.Error(t, err)
}

func TestReadInputXZ(t *testing.T) {
	in := withIDs(project, randomIDs(3)...)

	var packed bytes.Buffer
	w, err := xz.NewWriter(&packed)
	require.NoError(t, err)
	_, err = w.Write(in)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	dir := t.TempDir()
	plain := filepath.Join(dir, "plain.smbp")
	compressed := filepath.Join(dir, "packed.smbp.xz")
	require.NoError(t, os.WriteFile(plain, in, 0o644))
	require.NoError(t, os.WriteFile(compressed, packed.Bytes(), 0o644))

	data, err := ReadInput(compressed)
	require.NoError(t, err)
	assert.Equal(t, in, data)

	var a, b bytes.Buffer
	require.NoError(t, Convert(plain, &a, DefaultOptions()))
	require.NoError(t, Convert(compressed, &b, DefaultOptions()))
	assert.Equal(t, a.String(), b.String())
}

func TestReadInputErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := ReadInput(filepath.Join(dir, "missing.smbp"))
	assert.Error(t, err)

	corrupt := filepath.Join(dir, "corrupt.xz")
	require.NoError(t, os.WriteFile(corrupt, append(append([]byte{}, xzMagic...), "garbage"...), 0o644))
	_, err = ReadInput(corrupt)
	require.Error(t, err)
	assert.ErrorIs(t, err, perrors.ErrMalformedInput)
}

func TestFingerprint(t *testing.T) {
	conv := func(code string) string {
		out, err := Transform([]byte(`<Project><Program Name="Main" Code="`+code+`"/></Project>`), DefaultOptions())
		require.NoError(t, err)
		return Fingerprint(out)
	}
	compact := conv("IF a THEN b:=1; END_IF")
	spread := conv("IF a    THEN&#10;&#10;      b := 1;&#10;END_IF")
	other := conv("IF a THEN b:=2; END_IF")

	assert.Len(t, compact, 64)
	assert.Equal(t, compact, spread)
	assert.NotEqual(t, compact, other)
}
