//go:build linux || freebsd || openbsd || netbsd || dragonfly

package source

import (
	"fmt"
	"image"
	"os"

	"github.com/jezek/xgb"
	"github.com/jezek/xgb/randr"
	"github.com/jezek/xgb/xproto"
)

func x11Available() bool { return os.Getenv("DISPLAY") != "" }

// x11Screenshot grabs the root window. A positive monitor index limits the
// grab to that RandR output, counting connected outputs from 1.
func x11Screenshot(monitor int) (*image.RGBA, error) {
	conn, err := xgb.NewConn()
	if err != nil {
		return nil, fmt.Errorf("connect X server: %w", err)
	}
	defer conn.Close()

	setup := xproto.Setup(conn)
	if setup == nil {
		return nil, fmt.Errorf("xproto setup unavailable")
	}
	screen := setup.DefaultScreen(conn)
	area := image.Rect(0, 0, int(screen.WidthInPixels), int(screen.HeightInPixels))
	if monitor > 0 {
		rects, err := monitorRects(conn, screen.Root)
		if err != nil {
			return nil, err
		}
		if monitor > len(rects) {
			return nil, fmt.Errorf("monitor %d not found (%d connected)", monitor, len(rects))
		}
		area = rects[monitor-1].Intersect(area)
	}
	if area.Empty() {
		return nil, fmt.Errorf("screen has empty geometry")
	}

	reply, err := xproto.GetImage(conn, xproto.ImageFormatZPixmap, xproto.Drawable(screen.Root),
		int16(area.Min.X), int16(area.Min.Y), uint16(area.Dx()), uint16(area.Dy()), ^uint32(0)).Reply()
	if err != nil {
		return nil, fmt.Errorf("screen pixels: %w", err)
	}
	return zpixmapToRGBA(setup.PixmapFormats, reply.Depth, reply.Data, area.Dx(), area.Dy())
}

func monitorRects(conn *xgb.Conn, root xproto.Window) ([]image.Rectangle, error) {
	if err := randr.Init(conn); err != nil {
		return nil, fmt.Errorf("init randr: %w", err)
	}
	res, err := randr.GetScreenResources(conn, root).Reply()
	if err != nil {
		return nil, fmt.Errorf("randr screen resources: %w", err)
	}
	var out []image.Rectangle
	for _, output := range res.Outputs {
		info, err := randr.GetOutputInfo(conn, output, res.ConfigTimestamp).Reply()
		if err != nil || info.Connection != randr.ConnectionConnected || info.Crtc == 0 {
			continue
		}
		crtc, err := randr.GetCrtcInfo(conn, info.Crtc, res.ConfigTimestamp).Reply()
		if err != nil {
			continue
		}
		out = append(out, image.Rect(int(crtc.X), int(crtc.Y), int(crtc.X)+int(crtc.Width), int(crtc.Y)+int(crtc.Height)))
	}
	return out, nil
}

// zpixmapToRGBA converts BGRX/BGRA scanlines of the given depth.
func zpixmapToRGBA(formats []xproto.Format, depth byte, data []byte, width, height int) (*image.RGBA, error) {
	if width <= 0 || height <= 0 || len(data) == 0 {
		return nil, fmt.Errorf("screen pixels: empty image data")
	}
	bpp := 0
	for _, f := range formats {
		if f.Depth == depth {
			bpp = int(f.BitsPerPixel) / 8
			break
		}
	}
	if bpp < 3 {
		return nil, fmt.Errorf("unsupported screen depth %d", depth)
	}
	stride := len(data) / height
	if stride*height != len(data) || stride < width*bpp {
		return nil, fmt.Errorf("screen pixels: unexpected stride")
	}

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		row := data[y*stride:]
		dst := img.Pix[y*img.Stride:]
		for x := 0; x < width; x++ {
			s, d := x*bpp, x*4
			dst[d+0] = row[s+2]
			dst[d+1] = row[s+1]
			dst[d+2] = row[s]
			// The X server leaves the padding byte undefined for depth 24.
			dst[d+3] = 0xff
		}
	}
	return img, nil
}
