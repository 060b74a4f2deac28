package ws_test

import (
	"encoding/json"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"formbridge/internal/transport/ws"
)

var _ = Describe("Hub", func() {
	var hub *ws.Hub

	BeforeEach(func() {
		hub = ws.NewHub()
	})

	newConn := func(formID, userID string) *ws.Connection {
		conn := &ws.Connection{
			FormID: formID,
			UserID: userID,
			Send:   make(chan []byte, 8),
			Hub:    hub,
		}
		hub.Register(conn)
		return conn
	}

	It("delivers a broadcast to every dashboard watching the form", func() {
		first := newConn("f1", "u-creator")
		second := newConn("f1", "u-admin")
		bystander := newConn("f2", "u-other")

		hub.BroadcastToCreator("f1", string(ws.MsgResponseSubmitted), map[string]string{
			"responseId": "r1",
		})

		for _, conn := range []*ws.Connection{first, second} {
			var data []byte
			Eventually(conn.Send).Should(Receive(&data))

			var msg ws.Message
			Expect(json.Unmarshal(data, &msg)).To(Succeed())
			Expect(msg.Type).To(Equal(ws.MsgResponseSubmitted))

			var payload map[string]string
			Expect(json.Unmarshal(msg.Payload, &payload)).To(Succeed())
			Expect(payload["responseId"]).To(Equal("r1"))
		}

		Consistently(bystander.Send).ShouldNot(Receive())
	})

	It("closes the send channel on unregister", func() {
		conn := newConn("f1", "u-creator")
		hub.Unregister(conn)
		Eventually(conn.Send).Should(BeClosed())
	})

	It("drops messages for slow consumers instead of blocking", func() {
		conn := &ws.Connection{
			FormID: "f1",
			UserID: "u-creator",
			Send:   make(chan []byte), // unbuffered, nobody reading
			Hub:    hub,
		}
		hub.Register(conn)

		done := make(chan struct{})
		go func() {
			defer GinkgoRecover()
			for i := 0; i < 10; i++ {
				hub.BroadcastToCreator("f1", string(ws.MsgResponseSubmitted), i)
			}
			close(done)
		}()
		Eventually(done).Should(BeClosed())
	})
})
