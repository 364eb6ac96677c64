package httpgw_test

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/oio-sds/kinetic-gateway/httpgw"
)

const targetHeader = "X-Oio-Chunk-Meta-Target"

func withTargets(req *http.Request, targets ...string) *http.Request {
	req.Header.Del(targetHeader)
	for _, t := range targets {
		req.Header.Add(targetHeader, t)
	}
	return req
}

var _ = Describe("Handler", func() {
	var (
		resolver *fakeResolver
		server   *httptest.Server
	)

	BeforeEach(func() {
		resolver = newFakeResolver("t0", "t1", "t2")
		server = httptest.NewServer(&httpgw.Handler{Factory: resolver, BlockSize: 64})
	})

	AfterEach(func() {
		server.Close()
	})

	It("round-trips a PUT then GET then DELETE", func() {
		body := []byte("hello world, this is a striped blob body")

		putReq, err := http.NewRequest(http.MethodPut, server.URL+"/x/chunk1", bytes.NewReader(body))
		Expect(err).NotTo(HaveOccurred())
		putResp, err := http.DefaultClient.Do(withTargets(putReq, "t0", "t1", "t2"))
		Expect(err).NotTo(HaveOccurred())
		Expect(putResp.StatusCode).To(Equal(http.StatusOK))
		putResp.Body.Close()

		getReq, err := http.NewRequest(http.MethodGet, server.URL+"/x/chunk1", nil)
		Expect(err).NotTo(HaveOccurred())
		getResp, err := http.DefaultClient.Do(withTargets(getReq, "t0", "t1", "t2"))
		Expect(err).NotTo(HaveOccurred())
		Expect(getResp.StatusCode).To(Equal(http.StatusOK))
		got, err := io.ReadAll(getResp.Body)
		Expect(err).NotTo(HaveOccurred())
		getResp.Body.Close()
		Expect(got).To(Equal(body))

		delReq, err := http.NewRequest(http.MethodDelete, server.URL+"/x/chunk1", nil)
		Expect(err).NotTo(HaveOccurred())
		delResp, err := http.DefaultClient.Do(withTargets(delReq, "t0", "t1", "t2"))
		Expect(err).NotTo(HaveOccurred())
		Expect(delResp.StatusCode).To(Equal(http.StatusOK))
		delResp.Body.Close()

		getAgain, err := http.NewRequest(http.MethodGet, server.URL+"/x/chunk1", nil)
		Expect(err).NotTo(HaveOccurred())
		goneResp, err := http.DefaultClient.Do(withTargets(getAgain, "t0", "t1", "t2"))
		Expect(err).NotTo(HaveOccurred())
		Expect(goneResp.StatusCode).To(Equal(http.StatusBadRequest))
		goneResp.Body.Close()
	})

	It("defers a missing-target-header error without touching the body", func() {
		req, err := http.NewRequest(http.MethodPut, server.URL+"/x/chunk2", bytes.NewReader([]byte("data")))
		Expect(err).NotTo(HaveOccurred())

		resp, err := http.DefaultClient.Do(req)
		Expect(err).NotTo(HaveOccurred())
		defer resp.Body.Close()
		Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))

		var body map[string]any
		Expect(json.NewDecoder(resp.Body).Decode(&body)).To(Succeed())
		Expect(body["status"]).To(BeNumerically("==", http.StatusBadRequest))
	})

	It("rejects an unsupported method with 406", func() {
		req, err := http.NewRequest(http.MethodPatch, server.URL+"/x/chunk3", nil)
		Expect(err).NotTo(HaveOccurred())
		resp, err := http.DefaultClient.Do(withTargets(req, "t0"))
		Expect(err).NotTo(HaveOccurred())
		defer resp.Body.Close()
		Expect(resp.StatusCode).To(Equal(http.StatusNotAcceptable))
	})

	It("sends exactly one 100-continue before accepting any body byte", func() {
		addr := server.Listener.Addr().String()
		conn, err := net.Dial("tcp", addr)
		Expect(err).NotTo(HaveOccurred())
		defer conn.Close()

		body := "short body"
		request := "PUT /x/chunk4 HTTP/1.1\r\n" +
			"Host: " + addr + "\r\n" +
			targetHeader + ": t0\r\n" +
			"Expect: 100-continue\r\n" +
			fmt.Sprintf("Content-Length: %d\r\n", len(body)) +
			"Connection: close\r\n\r\n"
		_, err = conn.Write([]byte(request))
		Expect(err).NotTo(HaveOccurred())

		reader := bufio.NewReader(conn)
		statusLine, err := reader.ReadString('\n')
		Expect(err).NotTo(HaveOccurred())
		Expect(statusLine).To(ContainSubstring("100 Continue"))

		for {
			line, err := reader.ReadString('\n')
			Expect(err).NotTo(HaveOccurred())
			if line == "\r\n" {
				break
			}
		}

		_, err = conn.Write([]byte(body))
		Expect(err).NotTo(HaveOccurred())

		finalStatus, err := reader.ReadString('\n')
		Expect(err).NotTo(HaveOccurred())
		Expect(finalStatus).To(ContainSubstring("200"))
	})

	It("streams a download as chunked fragments reassembling to the upload", func() {
		body := bytes.Repeat([]byte("Z"), 200)
		putReq, err := http.NewRequest(http.MethodPut, server.URL+"/x/chunk5", bytes.NewReader(body))
		Expect(err).NotTo(HaveOccurred())
		putResp, err := http.DefaultClient.Do(withTargets(putReq, "t0"))
		Expect(err).NotTo(HaveOccurred())
		Expect(putResp.StatusCode).To(Equal(http.StatusOK))
		putResp.Body.Close()

		getReq, err := http.NewRequest(http.MethodGet, server.URL+"/x/chunk5", nil)
		Expect(err).NotTo(HaveOccurred())
		getResp, err := http.DefaultClient.Do(withTargets(getReq, "t0"))
		Expect(err).NotTo(HaveOccurred())
		Expect(getResp.StatusCode).To(Equal(http.StatusOK))
		got, err := io.ReadAll(getResp.Body)
		Expect(err).NotTo(HaveOccurred())
		getResp.Body.Close()
		Expect(got).To(Equal(body))
	})
})
