package transport

import (
	"image"
	"io"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/printhaus/receiptd/internal/halftone"
	"github.com/printhaus/receiptd/internal/model"
)

func TestDirectPrinterProbe(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			conn.Close()
		}
	}()

	addr := ln.Addr().(*net.TCPAddr)
	p := NewDirectPrinter("127.0.0.1", addr.Port, 576, zap.NewNop())
	assert.True(t, p.Probe())

	ln.Close()
	assert.False(t, p.Probe())
}

func TestDirectPrinterSendsJob(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	received := make(chan []byte, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		data, _ := io.ReadAll(conn)
		conn.Close()
		received <- data
	}()

	src := image.NewGray(image.Rect(0, 0, 16, 8))
	for i := range src.Pix {
		src.Pix[i] = 255
	}
	b64, err := halftone.EncodeBase64PNG(src)
	require.NoError(t, err)

	addr := ln.Addr().(*net.TCPAddr)
	p := NewDirectPrinter("127.0.0.1", addr.Port, 16, zap.NewNop())
	require.NoError(t, p.PublishTicket(model.NewTicket(b64, 1, time.Now())))

	data := <-received
	require.NotEmpty(t, data)
	assert.Equal(t, []byte{0x1B, 0x40}, data[:2])                       // initialize
	assert.Equal(t, []byte{0x1D, 0x56, 0x41, 0x00}, data[len(data)-4:]) // partial cut
}

func TestDirectPrinterRejectsBadBitmap(t *testing.T) {
	p := NewDirectPrinter("127.0.0.1", 9100, 576, zap.NewNop())
	err := p.PublishTicket(model.TicketPayload{DataBase64: "!!not base64!!", CutPaper: 1})
	assert.Error(t, err)
}
