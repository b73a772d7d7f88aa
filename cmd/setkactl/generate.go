package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"setka/internal/domain"
	"setka/internal/generation"
	"setka/internal/infra"
	"setka/internal/prompt"
	"setka/internal/providers/image"
	"setka/internal/providers/ohmygpt"
	"setka/pkg/zip"
)

// providerKeys are the credentials a local run calls providers with.
type providerKeys struct {
	Gemini         string
	OhMyGPT        string
	OhMyGPTBaseURL string
}

type providerFactory func(keys providerKeys, logger *infra.Logger) *image.Registry

func defaultProviders(keys providerKeys, logger *infra.Logger) *image.Registry {
	models := image.NewGenAIFactory(&http.Client{Timeout: 2 * time.Minute})
	client := ohmygpt.NewClient(ohmygpt.Options{
		APIKey:  keys.OhMyGPT,
		BaseURL: keys.OhMyGPTBaseURL,
		Logger:  logger,
	})
	return image.NewRegistry(
		image.NewGemini(os.Getenv("GEMINI_MODEL"), models, logger),
		image.NewImagen(os.Getenv("IMAGEN_MODEL"), models, logger),
		image.NewProxy(image.ProxyDallE, client, image.CredentialOhMyGPT, logger),
		image.NewProxy(image.ProxyFluxPro, client, image.CredentialOhMyGPT, logger),
	)
}

// staticCredentials resolves every credential family from flags.
type staticCredentials map[string]string

func (s staticCredentials) ResolveCredential(_ context.Context, _ generation.PaymentContext, family string) (string, error) {
	if key := strings.TrimSpace(s[family]); key != "" {
		return key, nil
	}
	return "", fmt.Errorf("no %s key given: %w", family, generation.ErrMissingCredential)
}

// wallet is an in-memory balance for rehearsing credit charges.
type wallet struct {
	mu      sync.Mutex
	credits int
}

func (w *wallet) TryCharge(_ context.Context, _ string, amount int) (bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.credits < amount {
		return false, nil
	}
	w.credits -= amount
	return true, nil
}

func (w *wallet) balance() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.credits
}

type generateOptions struct {
	provider   string
	prompt     string
	preset     string
	aspect     string
	resolution string
	baseImage  string
	styleImage string
	strength   int
	count      int
	out        string
	zip        bool
	budget     int
	pacing     time.Duration
	keys       providerKeys
}

func newGenerateCommand(ctx *commandContext) *cobra.Command {
	var opts generateOptions

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Run a batch locally and save the images",
		Long: `Run a batch against the configured providers without the API server.

Without --image the prompt is composed from the expert form; a TOML preset
fills the form and --prompt or --aspect override it. With --image the run is
a variation of that photo.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.keys.Gemini = envOr(opts.keys.Gemini, "GEMINI_API_KEY")
			opts.keys.OhMyGPT = envOr(opts.keys.OhMyGPT, "OHMYGPT_API_KEY")
			opts.keys.OhMyGPTBaseURL = envOr(opts.keys.OhMyGPTBaseURL, "OHMYGPT_BASE_URL")
			return runGenerate(cmd, ctx, opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.provider, "provider", "", "Model id (default: Imagen, or Gemini when reference images are given)")
	flags.StringVarP(&opts.prompt, "prompt", "p", "", "Prompt text")
	flags.StringVar(&opts.preset, "preset", "", "TOML file with expert form selections")
	flags.StringVar(&opts.aspect, "aspect", "", "Aspect ratio: 1:1, 16:9, 9:16, 4:3 or 3:4")
	flags.StringVar(&opts.resolution, "resolution", "", "Resolution, e.g. 1024x1024")
	flags.StringVar(&opts.baseImage, "image", "", "Photo to vary")
	flags.StringVar(&opts.styleImage, "style-image", "", "Style reference, used when the preset selects an uploaded style")
	flags.IntVar(&opts.strength, "strength", 0, "Variation strength 1..10")
	flags.IntVarP(&opts.count, "count", "n", 1, "Number of images")
	flags.StringVarP(&opts.out, "out", "o", ".", "Output directory")
	flags.BoolVar(&opts.zip, "zip", false, "Also write a zip archive of the batch")
	flags.IntVar(&opts.budget, "budget", 0, "Charge credits from an in-memory wallet of this size (0 runs free)")
	flags.DurationVar(&opts.pacing, "pacing", generation.DefaultPacingDelay, "Delay between items; 0 disables")
	flags.StringVar(&opts.keys.Gemini, "key", "", "Gemini API key (default $GEMINI_API_KEY)")
	flags.StringVar(&opts.keys.OhMyGPT, "ohmygpt-key", "", "OhMyGPT API key (default $OHMYGPT_API_KEY)")
	return cmd
}

func runGenerate(cmd *cobra.Command, ctx *commandContext, opts generateOptions) error {
	providers := ctx.newProviders(opts.keys, ctx.log())
	reqs, err := opts.requests(providers)
	if err != nil {
		return err
	}

	pay := generation.PaymentContext{UserID: "local", Mode: domain.PaymentOwnKey}
	purse := &wallet{credits: opts.budget}
	var charger generation.Charger
	if opts.budget > 0 {
		pay.Mode = domain.PaymentCredits
		charger = purse
	}
	pacing := opts.pacing
	if pacing <= 0 {
		pacing = -1
	}

	orch := generation.New(generation.Options{
		Providers: providers,
		Charger:   charger,
		Credentials: staticCredentials{
			image.CredentialGemini:  opts.keys.Gemini,
			image.CredentialOhMyGPT: opts.keys.OhMyGPT,
		},
		Logger:      ctx.log(),
		PacingDelay: pacing,
	})

	runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	errOut := cmd.ErrOrStderr()
	progress := generation.FuncSink(func(r generation.Result) {
		if r.Terminal() {
			printf(errOut, "[%d/%d] %s %s\n", r.Index+1, len(reqs), r.ID, r.Status)
		}
	})
	run, err := orch.Submit(runCtx, generation.Batch{Requests: reqs, Payment: pay}, progress)
	if err != nil {
		return err
	}
	go func() {
		select {
		case <-runCtx.Done():
			run.Stop()
		case <-run.Done():
		}
	}()
	state, _ := run.Wait(context.Background())
	snap := run.Snapshot()

	rows, entries, err := saveImages(opts.out, snap)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, renderTable(
		[]string{"#", "Item", "Status", "Attempts", "Output"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignLeft},
	))

	if opts.zip && len(entries) > 0 {
		archive, err := zip.Archive(entries)
		if err != nil {
			return fmt.Errorf("build archive: %w", err)
		}
		path := filepath.Join(opts.out, "batch-"+snap.ID+".zip")
		if err := os.WriteFile(path, archive, 0o644); err != nil {
			return fmt.Errorf("write archive: %w", err)
		}
		printf(out, "Archive: %s\n", path)
	}

	printf(out, "Batch %s %s: %d of %d images\n", snap.ID, state, len(entries), len(snap.Items))
	if opts.budget > 0 {
		printf(out, "%d credits left\n", purse.balance())
	}
	if len(entries) == 0 {
		return errors.New("no image was generated")
	}
	return nil
}

// requests builds the batch. providers, when given, bounds --count by what
// the chosen model accepts.
func (o generateOptions) requests(providers *image.Registry) ([]image.Request, error) {
	if o.count < 1 {
		return nil, fmt.Errorf("--count must be at least 1")
	}
	textModel := envOr("", "IMAGEN_MODEL")
	if textModel == "" {
		textModel = image.ImagenModel
	}
	imageModel := envOr("", "GEMINI_MODEL")
	if imageModel == "" {
		imageModel = image.GeminiModel
	}

	var (
		text     string
		aspect   domain.AspectRatio
		refs     []image.SourceImage
		mode     image.Variant
		strength int
	)
	if o.baseImage != "" {
		base, err := readReference(o.baseImage, image.RoleBase)
		if err != nil {
			return nil, err
		}
		if aspect, err = domain.ParseAspectRatio(o.aspect); err != nil {
			return nil, err
		}
		strength = prompt.ClampStrength(o.strength)
		text = prompt.Variation(o.prompt, strength)
		refs = []image.SourceImage{base}
		mode = image.VariantImageToImage
	} else {
		var sel prompt.ExpertSelections
		if o.preset != "" {
			var err error
			if sel, err = loadPreset(o.preset); err != nil {
				return nil, err
			}
		}
		if o.prompt != "" {
			sel.Prompt = o.prompt
		}
		if o.aspect != "" {
			sel.AspectRatio = domain.AspectRatio(o.aspect)
		}
		sel.Normalize()
		if err := sel.Validate(); err != nil {
			return nil, err
		}
		if sel.UsesStyleImage() {
			if o.styleImage == "" {
				return nil, errors.New("the preset uses an uploaded style: pass --style-image")
			}
			style, err := readReference(o.styleImage, image.RoleStyle)
			if err != nil {
				return nil, err
			}
			refs = []image.SourceImage{style}
		}
		text, aspect = prompt.Expert(sel), sel.AspectRatio
	}

	provider := o.provider
	if provider == "" {
		provider = textModel
		if len(refs) > 0 {
			provider = imageModel
		}
	}
	if limit := providers.BatchLimit(provider); limit > 0 && o.count > limit {
		return nil, fmt.Errorf("--count must be between 1 and %d for %s", limit, provider)
	}
	resolution := o.resolution
	if !aspect.ValidResolution(resolution) {
		resolution = aspect.DefaultResolution()
	}

	reqs := make([]image.Request, o.count)
	for i := range reqs {
		reqs[i] = image.Request{
			Prompt:      text,
			References:  refs,
			AspectRatio: aspect,
			Resolution:  resolution,
			Provider:    provider,
			Mode:        mode,
			Strength:    strength,
		}
	}
	return reqs, nil
}

func readReference(path string, role image.Role) (image.SourceImage, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return image.SourceImage{}, fmt.Errorf("read %s image: %w", role, err)
	}
	mimeType := http.DetectContentType(data)
	if !strings.HasPrefix(mimeType, "image/") {
		return image.SourceImage{}, fmt.Errorf("%s is not an image (%s)", path, mimeType)
	}
	return image.SourceImage{Role: role, MIMEType: mimeType, Data: data}, nil
}

// saveImages writes every successful item into dir and returns the table
// rows plus the archive entries.
func saveImages(dir string, snap generation.Snapshot) ([][]string, []zip.Entry, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, nil, fmt.Errorf("create output directory: %w", err)
	}
	rows := make([][]string, 0, len(snap.Items))
	var entries []zip.Entry
	for _, item := range snap.Items {
		output := item.Reason
		if item.Status == generation.StatusSuccess && item.Image != nil {
			name := fmt.Sprintf("%02d-%s%s", item.Index+1, item.ID, zip.Extension(item.Image.MIMEType))
			path := filepath.Join(dir, name)
			if err := os.WriteFile(path, item.Image.Data, 0o644); err != nil {
				return nil, nil, fmt.Errorf("write %s: %w", name, err)
			}
			output = path
			entries = append(entries, zip.Entry{Name: name, MIME: item.Image.MIMEType, Data: item.Image.Data, Modified: item.UpdatedAt})
		}
		rows = append(rows, []string{
			strconv.Itoa(item.Index + 1),
			item.ID,
			string(item.Status),
			strconv.Itoa(item.Attempts),
			output,
		})
	}
	return rows, entries, nil
}

func envOr(value, key string) string {
	if strings.TrimSpace(value) != "" {
		return value
	}
	return os.Getenv(key)
}
