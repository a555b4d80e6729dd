package topology

import (
	"os"
	"slices"
	"strings"
	"testing"
)

func loadFixture(t *testing.T, domain string) *Topology {
	t.Helper()
	topo, err := ReadConfigFile("testdata/lbfactory.json", domain)
	if err != nil {
		t.Fatalf("Unexpected error reading fixture: %v", err)
	}
	return topo
}

func TestParseLBFactoryConf(t *testing.T) {
	topo := loadFixture(t, "")
	var names []string
	for _, s := range topo.Sections {
		names = append(names, s.Name)
	}
	if expected := []string{"s1", "s5", "DEFAULT", "s6"}; !slices.Equal(names, expected) {
		t.Errorf("Expected sections %v, instead found %v", expected, names)
	}
	s1, ok := topo.Section("s1")
	if expected := []string{"db1163", "db1099:3311", "db1106"}; !ok || !slices.Equal(s1.Hosts, expected) {
		t.Errorf("Expected s1 hosts %v, instead found %v", expected, s1.Hosts)
	}
	if _, ok := topo.Section("x1"); ok {
		t.Error("Expected section x1 to be filtered out, but it was present")
	}
	if topo.SectionOfWiki("dewiki") != "s5" || topo.SectionOfWiki("barwiki") != DefaultSection {
		t.Errorf("Unexpected section mapping: %v", topo.WikiSections)
	}

	// Unwrapped form, with a domain
	unwrapped := `{"sectionLoads": {"s3": {"db2001": 0, "db2002:3313": 1}}, "sectionsByDB": {}}`
	topo, err := ParseLBFactoryConf([]byte(unwrapped), "codfw.wmnet")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if expected := []string{"db2001.codfw.wmnet", "db2002.codfw.wmnet:3313"}; !slices.Equal(topo.AllHosts(), expected) {
		t.Errorf("Expected hosts %v, instead found %v", expected, topo.AllHosts())
	}

	for _, bad := range []string{``, `[]`, `{"sectionsByDB": {}}`, `{"sectionLoads": []}`, `{"sectionLoads": {"s1": ["db1"]}}`, `{"sectionLoads": {"s1": {"db1": 0}`} {
		if _, err := ParseLBFactoryConf([]byte(bad), ""); err == nil {
			t.Errorf("Expected error from ParseLBFactoryConf(%q), but it returned nil", bad)
		}
	}
}

func TestTopologyLookups(t *testing.T) {
	topo := loadFixture(t, "")
	wikis := []string{"enwiki", "dewiki", "frwiki", "barwiki"}
	cases := []struct {
		host     string
		expected []string
	}{
		{"db1163", []string{"enwiki"}},
		{"db1113:3315", []string{"dewiki"}},
		{"db1179", []string{"barwiki"}},
		{"db9999", nil},
	}
	for _, c := range cases {
		if actual := topo.WikisForHost(c.host, wikis); !slices.Equal(actual, c.expected) {
			t.Errorf("Expected WikisForHost(%s) to return %v, instead found %v", c.host, c.expected, actual)
		}
	}
	if actual := topo.HostsForWiki("barwiki", nil); !slices.Equal(actual, []string{"db1181", "db1179"}) {
		t.Errorf("Unexpected HostsForWiki result for unmapped wiki: %v", actual)
	}
	masters := topo.Masters(FirstListed{}, topo.AllHosts())
	if expected := []string{"db1163", "db1230", "db1181", "db1173"}; !slices.Equal(masters, expected) {
		t.Errorf("Expected masters %v, instead found %v", expected, masters)
	}

	var empty *Topology
	if !empty.Empty() {
		t.Error("Expected nil Topology to be empty")
	}
	if actual := empty.WikisForHost("db1", wikis); !slices.Equal(actual, wikis) {
		t.Errorf("Expected nil Topology to serve every wiki from every host, instead found %v", actual)
	}
	if actual := empty.Masters(FirstListed{}, []string{"a", "b"}); !slices.Equal(actual, []string{"a", "b"}) {
		t.Errorf("Expected nil Topology to treat all hosts as masters, instead found %v", actual)
	}
}

func TestExplicitMasters(t *testing.T) {
	topo := loadFixture(t, "")
	policy, err := ParseExplicitMasters([]string{"s1=db1106", " s6 = db1187 "}, FirstListed{})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	masters := topo.Masters(policy, topo.AllHosts())
	if expected := []string{"db1106", "db1230", "db1181", "db1187"}; !slices.Equal(masters, expected) {
		t.Errorf("Expected masters %v, instead found %v", expected, masters)
	}
	if slices.Contains(masters, "db1163") {
		t.Error("Expected db1163 to no longer be a master")
	}
	noFallback := ExplicitMasters{Masters: map[string]string{"s1": "db1099:3311"}}
	if masters := topo.Masters(noFallback, topo.AllHosts()); !slices.Equal(masters, []string{"db1099:3311"}) {
		t.Errorf("Unexpected masters without fallback: %v", masters)
	}
	for _, bad := range []string{"s1", "=db1", "s1=", ""} {
		if _, err := ParseExplicitMasters([]string{bad}, nil); err == nil {
			t.Errorf("Expected error from ParseExplicitMasters(%q), but it returned nil", bad)
		}
	}
}

func TestQualify(t *testing.T) {
	cases := []struct {
		host, domain, expected string
	}{
		{"db1163", "", "db1163"},
		{"db1163", "eqiad.wmnet", "db1163.eqiad.wmnet"},
		{"db1163", ".eqiad.wmnet", "db1163.eqiad.wmnet"},
		{"db1099:3311", "eqiad.wmnet", "db1099.eqiad.wmnet:3311"},
		{"db1163.eqiad.wmnet", "eqiad.wmnet", "db1163.eqiad.wmnet"},
		{"db1163.eqiad.wmnet:3306", "eqiad.wmnet", "db1163.eqiad.wmnet:3306"},
	}
	for _, c := range cases {
		if actual := Qualify(c.host, c.domain); actual != c.expected {
			t.Errorf("Expected Qualify(%q, %q) to return %q, instead found %q", c.host, c.domain, c.expected, actual)
		}
	}
}

func TestScope(t *testing.T) {
	topo := loadFixture(t, "")
	scope := &Scope{
		Topology: topo,
		Wikis:    []string{"frwiki", "enwiki"},
	}
	if len(scope.ListHosts()) != 10 {
		t.Errorf("Expected 10 hosts in scope, instead found %v", scope.ListHosts())
	}
	if actual := scope.ListDatabasesServedBy("db1187"); !slices.Equal(actual, []string{"frwiki"}) {
		t.Errorf("Unexpected databases for db1187: %v", actual)
	}
	if actual := scope.ListDatabasesServedBy("db1230"); len(actual) != 0 {
		t.Errorf("Expected db1230 to serve no requested wikis, instead found %v", actual)
	}

	scope.Hosts = []string{"db1163", "db1106", "db1173", "db1106"}
	if actual := scope.ListHosts(); !slices.Equal(actual, []string{"db1163", "db1106", "db1173"}) {
		t.Errorf("Unexpected hosts in restricted scope: %v", actual)
	}
	if actual := scope.HostsServing("enwiki"); !slices.Equal(actual, []string{"db1163", "db1106"}) {
		t.Errorf("Unexpected hosts serving enwiki: %v", actual)
	}
	if actual := scope.ListDatabasesServedBy("db1187"); actual != nil {
		t.Errorf("Expected out-of-scope host to serve nothing, instead found %v", actual)
	}
	if actual := scope.Masters(); !slices.Equal(actual, []string{"db1163", "db1173"}) {
		t.Errorf("Unexpected masters in restricted scope: %v", actual)
	}

	flat := &Scope{Hosts: []string{"a", "b"}, Wikis: []string{"enwiki"}}
	if actual := flat.HostsServing("enwiki"); !slices.Equal(actual, []string{"a", "b"}) {
		t.Errorf("Unexpected hosts serving enwiki without topology: %v", actual)
	}
	if actual := flat.Masters(); !slices.Equal(actual, []string{"a", "b"}) {
		t.Errorf("Unexpected masters without topology: %v", actual)
	}
}

func TestParseDBList(t *testing.T) {
	wikis, err := ReadDBList("testdata/all.dblist")
	if err != nil {
		t.Fatalf("Unexpected error from ReadDBList: %v", err)
	}
	if expected := []string{"enwiki", "dewiki", "frwiki", "barwiki"}; !slices.Equal(wikis, expected) {
		t.Errorf("Expected %v, instead found %v", expected, wikis)
	}
	if _, err := ReadDBList("testdata/does-not-exist.dblist"); !os.IsNotExist(err) {
		t.Errorf("Expected not-exist error, instead found %v", err)
	}
	if wikis, err := ParseDBList(strings.NewReader("")); err != nil || len(wikis) != 0 {
		t.Errorf("Unexpected result for empty dblist: %v, %v", wikis, err)
	}
	if actual := Dedupe([]string{" a", "b", "", "a "}); !slices.Equal(actual, []string{"a", "b"}) {
		t.Errorf("Unexpected result from Dedupe: %v", actual)
	}
}

func TestParseCredentials(t *testing.T) {
	creds, err := ParseCredentials([]byte(`{"wgDBuser": "wikiuser", "wgDBpassword": "s3cret", "wgOther": 1}`))
	if err != nil || creds.User != "wikiuser" || creds.Password != "s3cret" {
		t.Errorf("Unexpected result from ParseCredentials: %+v, %v", creds, err)
	}
	for _, bad := range []string{`{}`, `{"wgDBuser": "wikiuser"}`, `{"wgDBpassword": "x"}`, `not json`} {
		if _, err := ParseCredentials([]byte(bad)); err == nil {
			t.Errorf("Expected error from ParseCredentials(%q), but it returned nil", bad)
		}
	}
}

func TestRunCommands(t *testing.T) {
	topo, err := RunConfigCommand("cat testdata/lbfactory.json; echo {WIKI} >/dev/null", "enwiki", "", 0)
	if err != nil {
		t.Fatalf("Unexpected error from RunConfigCommand: %v", err)
	}
	if len(topo.Sections) != 4 {
		t.Errorf("Expected 4 sections, instead found %d", len(topo.Sections))
	}
	if _, err := RunConfigCommand("echo 'Warning: rename failed' >&2; cat testdata/lbfactory.json", "enwiki", "", 0); err != nil {
		t.Errorf("Expected warnings on STDERR to be tolerated, instead found error %v", err)
	}
	if _, err := RunConfigCommand("echo 'Fatal error' >&2; cat testdata/lbfactory.json", "enwiki", "", 0); err == nil {
		t.Error("Expected errors on STDERR to be fatal, but no error was returned")
	}
	if _, err := RunConfigCommand("true", "enwiki", "", 0); err == nil {
		t.Error("Expected empty output to return an error, but it did not")
	}
	if _, err := RunConfigCommand("cat {BOGUS}", "enwiki", "", 0); err == nil {
		t.Error("Expected unknown variable to return an error, but it did not")
	}

	creds, err := RunCredsCommand(`printf '\173"wgDBuser": "%s", "wgDBpassword": "pw"\175' {WIKI}`, "enwiki", 0)
	if err != nil || creds.User != "enwiki" {
		t.Errorf("Unexpected result from RunCredsCommand: %+v, %v", creds, err)
	}
}
