package e2e_test

import (
	"crypto/rand"
	"math/big"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	resty "github.com/go-resty/resty/v2"
	. "github.com/onsi/ginkgo/v2" //nolint:revive //we want to use it for ginkgo
	. "github.com/onsi/gomega"    //nolint:revive //we want to use it for gomega

	"github.com/gatewarden/gatewarden/pkg/config"
	"github.com/gatewarden/gatewarden/pkg/constant"
	"github.com/gatewarden/gatewarden/pkg/server"
)

const (
	localURI    = "http://127.0.0.1:"
	timeout     = 30 * time.Second
	adminPath   = "/admin"
	opsPath     = "/ops/deploy"
	openPath    = "/public/index.html"
	testRealm   = "e2e"
	adminUser   = "alice"
	plainUser   = "bob"
	groupMember = "dave"
)

func generateRandomPort() (string, error) {
	var minPort int64 = 1024
	var maxPort int64 = 65000
	maxRand := big.NewInt(maxPort - minPort + 1)
	randPort, err := rand.Int(rand.Reader, maxRand)
	if err != nil {
		return "", err
	}
	randP := int(randPort.Int64() + minPort)
	return strconv.Itoa(randP), nil
}

func startAndWait(portNum string, cfg *config.Config) {
	go func() {
		defer GinkgoRecover()

		gate, err := server.NewGate(cfg, nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(gate.Run()).To(Succeed())
	}()

	Eventually(func(_ Gomega) error {
		conn, err := net.Dial("tcp", ":"+portNum)
		if err != nil {
			return err
		}
		conn.Close()
		return nil
	}, timeout, time.Second).Should(Succeed())
}

var _ = Describe("forward auth decisions", Ordered, func() {
	var portNum string

	BeforeAll(func() {
		var err error
		portNum, err = generateRandomPort()
		Expect(err).NotTo(HaveOccurred())

		groupFile := filepath.Join(GinkgoT().TempDir(), "groups")
		err = os.WriteFile(groupFile, []byte("admins: alice dave\n"), 0o600)
		Expect(err).NotTo(HaveOccurred())

		cfg := config.NewDefaultConfig()
		cfg.DisableAllLogging = true
		cfg.Listen = "127.0.0.1:" + portNum
		cfg.Realm = testRealm
		cfg.GroupFile = groupFile
		cfg.Scopes = []*config.Scope{
			{URI: adminPath, Require: []*config.Require{
				{Provider: constant.UserProvider, Rule: adminUser},
			}},
			{URI: "/ops", Require: []*config.Require{
				{Provider: constant.GroupFileProvider, Rule: "admins"},
			}},
		}

		startAndWait(portNum, cfg)
	})

	It("answers the health check", func() {
		resp, err := resty.New().R().Get(localURI + portNum + constant.HealthURL)
		Expect(err).NotTo(HaveOccurred())
		Expect(resp.StatusCode()).To(Equal(http.StatusOK))
		Expect(resp.Header().Get(constant.VersionHeader)).NotTo(BeEmpty())
	})

	It("serves the metrics endpoint", func() {
		resp, err := resty.New().R().Get(localURI + portNum + constant.MetricsURL)
		Expect(err).NotTo(HaveOccurred())
		Expect(resp.StatusCode()).To(Equal(http.StatusOK))
	})

	It("lets unprotected paths through", func() {
		resp, err := resty.New().R().Get(localURI + portNum + openPath)
		Expect(err).NotTo(HaveOccurred())
		Expect(resp.StatusCode()).To(Equal(http.StatusOK))
	})

	It("challenges anonymous requests to protected paths", func() {
		resp, err := resty.New().R().Get(localURI + portNum + adminPath)
		Expect(err).NotTo(HaveOccurred())
		Expect(resp.StatusCode()).To(Equal(http.StatusUnauthorized))
		Expect(resp.Header().Get(constant.ChallengeHeader)).To(
			Equal(`Basic realm="` + testRealm + `"`))
	})

	It("grants the configured user and echoes the identity", func() {
		resp, err := resty.New().R().
			SetHeader(constant.HeaderXAuthUsername, adminUser).
			Get(localURI + portNum + adminPath)
		Expect(err).NotTo(HaveOccurred())
		Expect(resp.StatusCode()).To(Equal(http.StatusOK))
		Expect(resp.Header().Get(constant.HeaderXAuthUsername)).To(Equal(adminUser))
	})

	It("denies a user outside the rule", func() {
		resp, err := resty.New().R().
			SetHeader(constant.HeaderXAuthUsername, plainUser).
			Get(localURI + portNum + adminPath)
		Expect(err).NotTo(HaveOccurred())
		Expect(resp.StatusCode()).To(Equal(http.StatusUnauthorized))
	})

	It("grants group members from the group file", func() {
		resp, err := resty.New().R().
			SetHeader(constant.HeaderXAuthUsername, groupMember).
			Get(localURI + portNum + opsPath)
		Expect(err).NotTo(HaveOccurred())
		Expect(resp.StatusCode()).To(Equal(http.StatusOK))
	})

	It("honours the forwarded uri of an auth sub-request", func() {
		resp, err := resty.New().R().
			SetHeader(constant.HeaderXAuthUsername, plainUser).
			SetHeader(constant.HeaderXForwardedURI, opsPath).
			Get(localURI + portNum + "/")
		Expect(err).NotTo(HaveOccurred())
		Expect(resp.StatusCode()).To(Equal(http.StatusUnauthorized))
	})
})
