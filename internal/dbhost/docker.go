package dbhost

import (
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	log "github.com/sirupsen/logrus"
	"github.com/skeema/tablecheck/internal/shellout"
)

// ErrNoDockerCLI is returned if the docker command-line client is not on the
// PATH.
var ErrNoDockerCLI = errors.New("unable to find `docker` command-line client among directories in PATH")

var dockerChecked bool

// checkDockerCLI confirms the docker client can reach a Docker engine. A
// successful result is memoized.
func checkDockerCLI() error {
	if dockerChecked {
		return nil
	}
	out, errOut, err := shellout.New(`docker info --format "{{json .ServerErrors}}"`).RunCaptureSeparate()
	if err != nil {
		if _, pathErr := exec.LookPath("docker"); pathErr != nil {
			return ErrNoDockerCLI
		}
		return fmt.Errorf("error invoking `docker` command-line client: %w: %s", err, errOut)
	}
	var serverErrors []string
	if err := json.Unmarshal([]byte(out), &serverErrors); err != nil {
		return fmt.Errorf("error decoding JSON response from `docker` command-line client: %w", err)
	} else if len(serverErrors) > 0 {
		return fmt.Errorf("error response from Docker engine: %s", strings.Join(serverErrors, "; "))
	}
	dockerChecked = true
	return nil
}

// DockerizedInstanceOptions configures a database server in a local Docker
// container.
type DockerizedInstanceOptions struct {
	Name         string // container name
	Image        string // e.g. "mariadb:10.11"
	RootPassword string
}

// DockerizedInstance is an Instance running in a local Docker container.
type DockerizedInstance struct {
	*Instance
	containerName string
	port          int // host port mapped to the container's 3306
}

// GetOrCreateDockerizedInstance starts an existing container named opts.Name,
// or creates one from opts.Image if none exists, and waits until the server
// inside accepts connections.
func GetOrCreateDockerizedInstance(opts DockerizedInstanceOptions) (*DockerizedInstance, error) {
	if opts.Name == "" || opts.Image == "" {
		return nil, errors.New("GetOrCreateDockerizedInstance: Name and Image fields must both be non-empty")
	}
	if err := checkDockerCLI(); err != nil {
		return nil, err
	}
	vars := map[string]string{"NAME": opts.Name}
	if _, err := shellout.New("docker start {NAME}").WithVariablesStrict(vars).RunCaptureCombined(); err == nil {
		return newDockerizedInstance(opts)
	}
	return CreateDockerizedInstance(opts)
}

// CreateDockerizedInstance creates and starts a new container.
func CreateDockerizedInstance(opts DockerizedInstanceOptions) (*DockerizedInstance, error) {
	if err := checkDockerCLI(); err != nil {
		return nil, err
	}
	if opts.Image == "" {
		return nil, errors.New("CreateDockerizedInstance: Image field cannot be empty string")
	}
	flags := []string{
		"-d",
		"-p 127.0.0.1::3306/tcp",
		"-e MYSQL_ROOT_HOST=%",
		"--tmpfs /var/lib/mysql",
	}
	if opts.RootPassword == "" {
		flags = append(flags, "-e MYSQL_ALLOW_EMPTY_PASSWORD=1", "-e MARIADB_ALLOW_EMPTY_ROOT_PASSWORD=1")
	} else {
		flags = append(flags, "-e {ROOTPWDENV}", "-e {MARIAPWDENV}")
	}
	if opts.Name != "" {
		flags = append(flags, "--name {NAME}")
	}
	vars := map[string]string{
		"ROOTPWDENV":  "MYSQL_ROOT_PASSWORD=" + opts.RootPassword,
		"MARIAPWDENV": "MARIADB_ROOT_PASSWORD=" + opts.RootPassword,
		"NAME":        opts.Name,
		"IMAGE":       opts.Image,
	}
	c := shellout.New("docker run " + strings.Join(flags, " ") + " {IMAGE} --skip-log-bin --performance-schema=0").WithVariablesStrict(vars)
	out, errOut, err := c.RunCaptureSeparate()
	if err != nil {
		return nil, fmt.Errorf("unable to create Docker container using `%s`: %w: %s", c, err, errOut)
	}
	if opts.Name == "" {
		opts.Name = strings.TrimSpace(out)
	}
	return newDockerizedInstance(opts)
}

func newDockerizedInstance(opts DockerizedInstanceOptions) (*DockerizedInstance, error) {
	di := &DockerizedInstance{containerName: opts.Name}
	if err := di.lookupPort(); err != nil {
		return nil, err
	}
	var pass string
	if opts.RootPassword != "" {
		pass = ":" + opts.RootPassword
	}
	dsn := fmt.Sprintf("root%s@tcp(127.0.0.1:%d)/?timeout=5s", pass, di.port)
	inst, err := NewInstance("mysql", dsn)
	if err != nil {
		return nil, err
	}
	di.Instance = inst
	if err := di.TryConnect(); err != nil {
		logs, logErr := shellout.New("docker logs --tail 50 {NAME}").WithVariablesStrict(map[string]string{"NAME": opts.Name}).RunCaptureCombined()
		if logErr == nil {
			err = fmt.Errorf("%w\nLast 50 lines of container logs:\n%s", err, logs)
		}
		return nil, err
	}
	return di, nil
}

// lookupPort finds the host port mapped to the container's port 3306. The
// mapping is often not visible immediately after the container starts, so
// this retries briefly.
func (di *DockerizedInstance) lookupPort() (err error) {
	c := shellout.New(`docker inspect --type container --format="{{json .NetworkSettings.Ports}}" {NAME}`).WithVariablesStrict(map[string]string{"NAME": di.containerName})
	for n := 1; n <= 5 && di.port == 0; n++ {
		time.Sleep(time.Duration(n) * 10 * time.Millisecond)
		var out string
		if out, err = c.RunCaptureCombined(); err != nil {
			continue
		}
		var ports map[string][]struct{ HostPort string }
		if err = json.Unmarshal([]byte(out), &ports); err != nil {
			continue
		}
		if mapped := ports["3306/tcp"]; len(mapped) > 0 {
			di.port, _ = strconv.Atoi(mapped[0].HostPort)
		}
	}
	if err != nil {
		return fmt.Errorf("Unable to find port mapping for container %s: %w", di.containerName, err)
	} else if di.port == 0 {
		return fmt.Errorf("Unable to find port mapping for container %s", di.containerName)
	}
	return nil
}

// TryConnect waits up to 30 seconds for the server to accept connections.
func (di *DockerizedInstance) TryConnect() (err error) {
	for attempt := 0; attempt < 120; attempt++ {
		var ok bool
		if ok, err = di.CanConnect(); ok {
			return nil
		}
		time.Sleep(250 * time.Millisecond)
	}
	return err
}

// Addr returns the address of the server, as host:port on localhost.
func (di *DockerizedInstance) Addr() string {
	return "127.0.0.1:" + strconv.Itoa(di.port)
}

// Stop halts the container without removing it.
func (di *DockerizedInstance) Stop() error {
	di.CloseAll()
	out, err := shellout.New("docker stop {NAME}").WithVariablesStrict(map[string]string{"NAME": di.containerName}).RunCaptureCombined()
	if err != nil {
		err = fmt.Errorf("%w: %s", err, out)
	}
	return err
}

// Destroy stops and removes the container.
func (di *DockerizedInstance) Destroy() error {
	di.CloseAll()
	_, err := shellout.New("docker rm -v -f {NAME}").WithVariablesStrict(map[string]string{"NAME": di.containerName}).RunCaptureCombined()
	return err
}

func (di *DockerizedInstance) String() string {
	return "DockerizedInstance:" + di.containerName
}

// ContainerNameForImage returns a container name fragment derived from an
// image name, e.g. "mariadb-10.11" for "mariadb:10.11".
func ContainerNameForImage(image string) string {
	return strings.NewReplacer("/", "-", ":", "-").Replace(image)
}

type filteredLogger struct{}

func (filteredLogger) Print(v ...interface{}) {
	for _, arg := range v {
		if err, ok := arg.(error); ok {
			if msg := err.Error(); strings.Contains(msg, "EOF") || strings.Contains(msg, "unexpected read") {
				return
			}
		}
	}
	log.Debug("[mysql] " + fmt.Sprint(v...))
}

// UseFilteredDriverLogger routes the mysql driver's log output to debug-level
// logging, dropping the unexpected-EOF noise produced while a container is
// still starting up.
func UseFilteredDriverLogger() {
	mysql.SetLogger(filteredLogger{})
}
