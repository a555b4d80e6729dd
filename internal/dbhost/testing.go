package dbhost

import (
	"fmt"
	"os"
	"reflect"
	"strings"
	"testing"

	"github.com/jmoiron/sqlx"
)

// IntegrationTestSuite is a set of test methods run against real database
// servers. Besides these methods, the suite should have any number of methods
// of form TestFoo(t *testing.T), which RunSuite calls.
type IntegrationTestSuite interface {
	Setup(t *testing.T, backend string)
	Teardown(t *testing.T)
	BeforeTest(t *testing.T)
}

// RunSuite runs every Test method of suite once per backend, as subtests.
// Setup and Teardown bracket each backend; BeforeTest precedes each test.
func RunSuite(suite IntegrationTestSuite, t *testing.T, backends []string) {
	suiteType := reflect.TypeOf(suite)
	suiteName := suiteType.Name()
	if suiteType.Kind() == reflect.Ptr {
		suiteName = suiteType.Elem().Name()
	}
	if len(backends) == 0 {
		t.Skipf("Skipping integration test suite %s: No backends supplied", suiteName)
	}
	for _, backend := range backends {
		suite.Setup(t, backend)
		for n := 0; n < suiteType.NumMethod(); n++ {
			method := suiteType.Method(n)
			if !strings.HasPrefix(method.Name, "Test") {
				continue
			}
			t.Run(fmt.Sprintf("%s.%s:%s", suiteName, method.Name, backend), func(subt *testing.T) {
				suite.BeforeTest(subt)
				method.Func.Call([]reflect.Value{reflect.ValueOf(suite), reflect.ValueOf(subt)})
			})
		}
		suite.Teardown(t)
	}
}

// IntegrationImages returns the Docker images listed, comma-separated, in the
// TABLECHECK_TEST_IMAGES env var. The test is skipped if it is unset.
func IntegrationImages(t *testing.T) []string {
	t.Helper()
	envString := strings.TrimSpace(os.Getenv("TABLECHECK_TEST_IMAGES"))
	if envString == "" {
		t.Skip("TABLECHECK_TEST_IMAGES env var is not set, so integration tests will be skipped. Example: TABLECHECK_TEST_IMAGES=\"mysql:8.0,mariadb:10.11\" go test ./...")
	}
	var images []string
	for _, image := range strings.Split(envString, ",") {
		if image = strings.TrimSpace(image); image != "" {
			images = append(images, image)
		}
	}
	return images
}

// Done cleans up a test container according to TABLECHECK_TEST_CLEANUP:
// "stop" stops it, "none" leaves it running, and anything else removes it if
// its name begins with "tablecheck-test-".
func (di *DockerizedInstance) Done(t *testing.T) {
	t.Helper()
	action := strings.TrimSpace(os.Getenv("TABLECHECK_TEST_CLEANUP"))
	var err error
	if strings.EqualFold(action, "stop") {
		err = di.Stop()
	} else if !strings.EqualFold(action, "none") && strings.HasPrefix(di.containerName, "tablecheck-test-") {
		err = di.Destroy()
	}
	if err != nil {
		t.Fatalf("Unable to clean up test container %s: %v", di, err)
	}
}

// ExecSQL runs one or more semicolon-separated statements, failing the test
// on error.
func (di *DockerizedInstance) ExecSQL(t *testing.T, statements string) {
	t.Helper()
	db, err := sqlx.Connect(di.Driver, di.BaseDSN+"?"+di.BuildParamString("multiStatements=true"))
	if err != nil {
		t.Fatalf("Unable to connect to %s: %v", di, err)
	}
	defer db.Close()
	if _, err := db.Exec(statements); err != nil {
		t.Fatalf("Error executing SQL on %s: %v", di, err)
	}
}
