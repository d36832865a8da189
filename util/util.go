package util

import (
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/mod/semver"
)

const (
	serialNumberMin = 2
	serialNumberMax = 99999999999999
)

var random = rand.New(rand.NewSource(time.Now().UnixNano()))

func UUID() string {
	return uuid.New().String()
}

// ValidateUUID returns the canonical form of s.
func ValidateUUID(s string) (string, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return "", errors.Wrapf(err, "invalid UUID %v", s)
	}
	return id.String(), nil
}

// GenerateSerialNumber returns prefix followed by a random number in
// [2, 99999999999999].
func GenerateSerialNumber(prefix string) string {
	return fmt.Sprintf("%s%d", prefix, serialNumberMin+random.Int63n(serialNumberMax-serialNumberMin+1))
}

func GetHostname() string {
	name, err := os.Hostname()
	if err != nil {
		logrus.WithError(err).Warn("Failed to get hostname")
		return ""
	}
	return name
}

// CanonicalVersion turns "1.2.3" into the semver form "v1.2.3". Only
// versions made of exactly three numeric parts are accepted, leading zeros
// included.
func CanonicalVersion(version string) (string, error) {
	v := strings.TrimPrefix(strings.TrimSpace(version), "v")
	parts := strings.Split(v, ".")
	if len(parts) != 3 {
		return "", errors.Errorf("invalid version %v", version)
	}
	nums := make([]interface{}, len(parts))
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return "", errors.Errorf("invalid version %v", version)
		}
		nums[i] = n
	}
	canonical := fmt.Sprintf("v%d.%d.%d", nums...)
	if !semver.IsValid(canonical) {
		return "", errors.Errorf("invalid version %v", version)
	}
	return canonical, nil
}

// CompareVersions returns -1, 0 or 1 like strings.Compare.
func CompareVersions(a, b string) (int, error) {
	va, err := CanonicalVersion(a)
	if err != nil {
		return 0, err
	}
	vb, err := CanonicalVersion(b)
	if err != nil {
		return 0, err
	}
	return semver.Compare(va, vb), nil
}

func RegisterShutdownChannel(done chan struct{}) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigs
		logrus.Infof("Receive %v to exit", sig)
		close(done)
	}()
}

func GetEnvOrDefault(key, defaultValue string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return defaultValue
}
