package server

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"golang.org/x/image/draw"
	"golang.org/x/net/html"

	"overlayfit/fit"
)

const browserTimeout = 25 * time.Second

// measureScript reports, for every marker element's parent, the computed
// padding strings and the border-box rect after the page's load event. The
// shape matches fit.Measurement.
const measureScript = `(() => {
	return Array.from(document.querySelectorAll(%s)).map((el) => {
		const parent = el.parentElement;
		if (!parent) { throw new Error("overlay target has no parent"); }
		const cs = getComputedStyle(parent);
		const rect = parent.getBoundingClientRect();
		return {
			paddingTop: cs.paddingTop,
			paddingLeft: cs.paddingLeft,
			width: rect.width,
			height: rect.height,
		};
	});
})()`

// applyScript performs the overlay adjustment in-page so /preview
// screenshots show the fitted result.
const applyScript = `(() => {
	document.querySelectorAll(%s).forEach((el) => {
		const parent = el.parentElement;
		if (!parent) { return; }
		const cs = getComputedStyle(parent);
		const paddingTops = [cs.paddingTop];
		const paddingLefts = [cs.paddingLeft];
		if (el.dataset.additionalMt) { paddingTops.push(el.dataset.additionalMt); }
		if (el.dataset.additionalMl) { paddingLefts.push(el.dataset.additionalMl); }
		const rect = parent.getBoundingClientRect();
		el.style.width = rect.width + "px";
		el.style.height = rect.height + "px";
		el.style.marginTop = "calc((" + paddingTops.join(" + ") + ") * -1)";
		el.style.marginLeft = "calc((" + paddingLefts.join(" + ") + ") * -1)";
	});
	return true;
})()`

// browserMeasurer measures overlay parents in a real renderer. It keeps a
// shared exec allocator; each measurement runs in a fresh browser context.
type browserMeasurer struct {
	allocator context.Context
	cancel    context.CancelFunc
	logger    *log.Logger
}

func newBrowserMeasurer(logger *log.Logger) *browserMeasurer {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("hide-scrollbars", true),
		chromedp.Flag("mute-audio", true),
		chromedp.Flag("no-first-run", true),
		chromedp.Flag("no-default-browser-check", true),
		chromedp.Flag("disable-background-networking", true),
		chromedp.Flag("disable-background-timer-throttling", true),
		chromedp.Flag("disable-renderer-backgrounding", true),
		chromedp.Flag("disable-sync", true),
		chromedp.Flag("disable-extensions", true),
	)
	allocCtx, cancel := chromedp.NewExecAllocator(context.Background(), opts...)
	return &browserMeasurer{
		allocator: allocCtx,
		cancel:    cancel,
		logger:    logger,
	}
}

func (b *browserMeasurer) Close() {
	if b.cancel != nil {
		b.cancel()
	}
}

// Live adapts the browser to the fit.Measurer interface for one request.
func (b *browserMeasurer) Live(ctx context.Context, target, marker string, hdr http.Header, opts *fit.Options) fit.Measurer {
	return &liveMeasurer{b: b, ctx: ctx, target: target, marker: marker, hdr: hdr, opts: opts}
}

type liveMeasurer struct {
	b      *browserMeasurer
	ctx    context.Context
	target string
	marker string
	hdr    http.Header
	opts   *fit.Options
}

func (m *liveMeasurer) Measure(_ *html.Node, targets []*html.Node) ([]fit.Measurement, error) {
	ms, err := m.b.measure(m.ctx, m.target, m.marker, m.hdr, m.opts)
	if err != nil {
		return nil, err
	}
	if len(ms) != len(targets) {
		return nil, fmt.Errorf("live measure: browser saw %d marker elements, parsed document has %d", len(ms), len(targets))
	}
	return ms, nil
}

func (b *browserMeasurer) measure(ctx context.Context, target, marker string, hdr http.Header, opts *fit.Options) ([]fit.Measurement, error) {
	if b.logger != nil {
		b.logger.Printf("BROWSER measure %s marker=%q", target, marker)
	}
	var out []fit.Measurement
	script := fmt.Sprintf(measureScript, strconv.Quote(marker))
	err := b.run(ctx, target, hdr, opts, chromedp.Evaluate(script, &out))
	if err != nil {
		return nil, fmt.Errorf("live measure: %w", err)
	}
	return out, nil
}

// Preview screenshots the page after applying the overlay fit in-page,
// optionally scaled down to outW pixels wide.
func (b *browserMeasurer) Preview(ctx context.Context, target, marker string, hdr http.Header, opts *fit.Options, outW int) ([]byte, error) {
	var shot []byte
	script := fmt.Sprintf(applyScript, strconv.Quote(marker))
	err := b.run(ctx, target, hdr, opts,
		chromedp.Evaluate(script, nil),
		chromedp.CaptureScreenshot(&shot),
	)
	if err != nil {
		return nil, fmt.Errorf("preview: %w", err)
	}
	if outW <= 0 {
		return shot, nil
	}
	return scalePNG(shot, outW)
}

// run navigates a fresh browser context to the target and executes the
// trailing actions once the document is ready.
func (b *browserMeasurer) run(ctx context.Context, target string, hdr http.Header, opts *fit.Options, extra ...chromedp.Action) error {
	if strings.TrimSpace(target) == "" {
		return fmt.Errorf("empty target url")
	}
	taskCtx, cancelBrowser := chromedp.NewContext(b.allocator)
	defer cancelBrowser()

	if ctx != nil {
		var cancel context.CancelFunc
		taskCtx, cancel = context.WithCancel(taskCtx)
		go func() {
			select {
			case <-ctx.Done():
				cancel()
			case <-taskCtx.Done():
			}
		}()
		defer cancel()
	}
	taskCtx, cancelTimeout := context.WithTimeout(taskCtx, browserTimeout)
	defer cancelTimeout()

	vw, vh := 0, 0
	if opts != nil {
		vw, vh = opts.ViewportW, opts.ViewportH
	}
	defaults := fit.DefaultOptions()
	if vw <= 0 {
		vw = defaults.ViewportW
	}
	if vh <= 0 {
		vh = defaults.ViewportH
	}

	actions := []chromedp.Action{
		network.Enable(),
		chromedp.ActionFunc(func(ctx context.Context) error {
			return emulation.SetDeviceMetricsOverride(int64(vw), int64(vh), 1, false).Do(ctx)
		}),
	}

	requestHeaders := cloneHeader(hdr)
	if ua := requestHeaders.Get("User-Agent"); ua != "" {
		actions = append(actions, chromedp.ActionFunc(func(ctx context.Context) error {
			return emulation.SetUserAgentOverride(ua).Do(ctx)
		}))
		requestHeaders.Del("User-Agent")
	}
	if len(requestHeaders) > 0 {
		extraHdr := network.Headers{}
		for k, vs := range requestHeaders {
			name := http.CanonicalHeaderKey(k)
			if strings.EqualFold(name, "Content-Length") || len(vs) == 0 {
				continue
			}
			extraHdr[name] = strings.Join(vs, ", ")
		}
		if len(extraHdr) > 0 {
			actions = append(actions, chromedp.ActionFunc(func(ctx context.Context) error {
				return network.SetExtraHTTPHeaders(extraHdr).Do(ctx)
			}))
		}
	}

	actions = append(actions,
		chromedp.Navigate(target),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
	actions = append(actions, extra...)

	return chromedp.Run(taskCtx, actions...)
}

// scalePNG downscales a screenshot to the requested width, preserving the
// aspect ratio.
func scalePNG(data []byte, outW int) ([]byte, error) {
	src, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode screenshot: %w", err)
	}
	bounds := src.Bounds()
	if bounds.Dx() <= outW {
		return data, nil
	}
	outH := bounds.Dy() * outW / bounds.Dx()
	if outH < 1 {
		outH = 1
	}
	dst := image.NewRGBA(image.Rect(0, 0, outW, outH))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, draw.Over, nil)
	var buf bytes.Buffer
	if err := png.Encode(&buf, dst); err != nil {
		return nil, fmt.Errorf("encode screenshot: %w", err)
	}
	return buf.Bytes(), nil
}
