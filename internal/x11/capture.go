package x11

import (
	"fmt"
	"image"
	"image/color"

	"github.com/BurntSushi/xgb/composite"
	"github.com/BurntSushi/xgb/xproto"
)

// CaptureComposite reads a window's off-screen composite pixmap. It works
// for obscured windows and windows on other desktops as long as the window
// is mapped and a compositing manager redirects it. Under a reparenting
// window manager the pixmap belongs to the frame, so only the client area is
// returned and the image stays aligned with the client's coordinates.
func (c *Connection) CaptureComposite(windowID uint32) (image.Image, error) {
	if err := c.CompositeErr(); err != nil {
		return nil, fmt.Errorf("composite extension unavailable: %w", err)
	}

	client := xproto.Window(windowID)
	frame := c.TopLevel(client)
	conn := c.XUtil.Conn()

	pixmap, err := xproto.NewPixmapId(conn)
	if err != nil {
		return nil, fmt.Errorf("failed to allocate pixmap id: %w", err)
	}
	if err := composite.NameWindowPixmapChecked(conn, frame, pixmap).Check(); err != nil {
		return nil, fmt.Errorf("window %d is not redirected: %w", windowID, err)
	}
	defer xproto.FreePixmap(conn, pixmap)

	geom, err := xproto.GetGeometry(conn, xproto.Drawable(pixmap)).Reply()
	if err != nil {
		return nil, fmt.Errorf("failed to get pixmap geometry: %w", err)
	}
	area := image.Rect(0, 0, int(geom.Width), int(geom.Height))
	if frame != client {
		if r, err := c.clientOffset(client, frame); err == nil {
			area = clientArea(area, r)
		}
	}
	return c.grab(xproto.Drawable(pixmap), area.Min.X, area.Min.Y, area.Dx(), area.Dy())
}

// clientOffset returns the client's rectangle in frame coordinates.
func (c *Connection) clientOffset(client, frame xproto.Window) (image.Rectangle, error) {
	conn := c.XUtil.Conn()
	geom, err := xproto.GetGeometry(conn, xproto.Drawable(client)).Reply()
	if err != nil {
		return image.Rectangle{}, err
	}
	tr, err := xproto.TranslateCoordinates(conn, client, frame, 0, 0).Reply()
	if err != nil {
		return image.Rectangle{}, err
	}
	return image.Rect(0, 0, int(geom.Width), int(geom.Height)).Add(image.Pt(int(tr.DstX), int(tr.DstY))), nil
}

// clientArea clips the client rectangle to the frame pixmap. An empty
// intersection keeps the whole frame.
func clientArea(frame, client image.Rectangle) image.Rectangle {
	if r := frame.Intersect(client); !r.Empty() {
		return r
	}
	return frame
}

// CaptureDirect reads a viewable window's visible pixels.
func (c *Connection) CaptureDirect(windowID uint32) (image.Image, error) {
	geom, err := xproto.GetGeometry(c.XUtil.Conn(), xproto.Drawable(windowID)).Reply()
	if err != nil {
		return nil, fmt.Errorf("failed to get window geometry: %w", err)
	}
	return c.grab(xproto.Drawable(windowID), 0, 0, int(geom.Width), int(geom.Height))
}

// CaptureRoot reads the whole root window.
func (c *Connection) CaptureRoot() (image.Image, error) {
	geom, err := xproto.GetGeometry(c.XUtil.Conn(), xproto.Drawable(c.Root)).Reply()
	if err != nil {
		return nil, fmt.Errorf("failed to get root geometry: %w", err)
	}
	return c.grab(xproto.Drawable(c.Root), 0, 0, int(geom.Width), int(geom.Height))
}

// ProbeCapture reads one pixel of the root window.
func (c *Connection) ProbeCapture() error {
	_, err := c.grab(xproto.Drawable(c.Root), 0, 0, 1, 1)
	return err
}

func (c *Connection) grab(d xproto.Drawable, x, y, w, h int) (image.Image, error) {
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("degenerate capture area %dx%d", w, h)
	}
	reply, err := xproto.GetImage(
		c.XUtil.Conn(),
		xproto.ImageFormatZPixmap,
		d,
		int16(x), int16(y),
		uint16(w), uint16(h),
		0xFFFFFFFF,
	).Reply()
	if err != nil {
		return nil, fmt.Errorf("GetImage failed: %w", err)
	}
	return decodeZPixmap(reply.Data, reply.Depth, w, h)
}

// decodeZPixmap converts 24/32-bit little-endian BGRX pixel data.
func decodeZPixmap(data []byte, depth byte, w, h int) (image.Image, error) {
	if depth != 24 && depth != 32 {
		return nil, fmt.Errorf("unsupported pixmap depth %d", depth)
	}
	if len(data) < w*h*4 {
		return nil, fmt.Errorf("short pixmap data: got %d bytes for %dx%d", len(data), w, h)
	}
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for py := 0; py < h; py++ {
		for px := 0; px < w; px++ {
			i := (py*w + px) * 4
			img.SetRGBA(px, py, color.RGBA{R: data[i+2], G: data[i+1], B: data[i], A: 0xFF})
		}
	}
	return img, nil
}
