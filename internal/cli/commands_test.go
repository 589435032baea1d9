// Copyright (c) 2025 Jeremy Hahn
// Copyright (c) 2025 Automate The Things, LLC
//
// This file is part of go-shadowshare.
//
// go-shadowshare is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@automatethethings.com for commercial licensing options.

package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	mrand "math/rand/v2"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeremyhahn/go-shadowshare/internal/testutil"
	"github.com/jeremyhahn/go-shadowshare/pkg/bmp"
)

const (
	testWidth  = 12
	testHeight = 6
)

func runCLI(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cfg := NewConfig()
	cfg.SetOutput(&stdout, &stderr)
	err := Run(context.Background(), cfg, args)
	return stdout.String(), stderr.String(), err
}

// fixture lays out a secret next to a directory of n covers
type fixture struct {
	root   string
	secret string
	covers string
	image  *bmp.Image
}

func newFixture(t *testing.T, n int) *fixture {
	t.Helper()
	root := t.TempDir()
	covers := filepath.Join(root, "covers")
	require.NoError(t, os.Mkdir(covers, 0755))

	rng := mrand.New(mrand.NewPCG(7, uint64(n)))
	f := &fixture{
		root:   root,
		secret: filepath.Join(root, "secret.bmp"),
		covers: covers,
	}
	f.image = testutil.RandomBitmap(rng, testWidth, testHeight, 250)
	testutil.WriteBitmap(t, f.secret, f.image)
	for i := 0; i < n; i++ {
		testutil.WriteBitmap(t, f.cover(i), testutil.RandomBitmap(rng, testWidth, testHeight, 255))
	}
	return f
}

func (f *fixture) cover(i int) string {
	return filepath.Join(f.covers, fmt.Sprintf("cover%02d.bmp", i))
}

func TestDistributeRecover_RoundTrip(t *testing.T) {
	for _, k := range []int{3, 4, 5} {
		t.Run(fmt.Sprintf("k=%d", k), func(t *testing.T) {
			n := k + 1
			f := newFixture(t, n)

			stdout, _, err := runCLI(t, "distribute", f.secret, fmt.Sprint(k), f.covers, "--seed", "1")
			require.NoError(t, err)
			assert.Contains(t, stdout,
				fmt.Sprintf("Distributing the secret image '%s' into %d images", f.secret, n))

			for i := 0; i < n; i++ {
				img := testutil.ReadBitmap(t, f.cover(i))
				assert.Equal(t, uint16(i+1), img.Header.ParticipantID())
			}

			output := filepath.Join(f.root, "recovered.bmp")
			stdout, _, err = runCLI(t, "recover", output, fmt.Sprint(k), f.covers)
			require.NoError(t, err)
			assert.Contains(t, stdout,
				fmt.Sprintf("Recovering the secret image '%s' from %d images", output, n))

			recovered := testutil.ReadBitmap(t, output)
			assert.Equal(t, f.image.Pixels, recovered.Pixels)
			assert.Equal(t, uint16(0), recovered.Header.ParticipantID())
			assert.Equal(t, testWidth, recovered.Width())
			assert.Equal(t, testHeight, recovered.Height())
		})
	}
}

func TestDistributeRecover_Aliases(t *testing.T) {
	f := newFixture(t, 5)

	_, _, err := runCLI(t, "d", f.secret, "3", f.covers)
	require.NoError(t, err)

	output := filepath.Join(f.root, "out", "secret.bmp")
	_, _, err = runCLI(t, "r", output, "3", f.covers, "--selection", "random")
	require.NoError(t, err)
	assert.Equal(t, f.image.Pixels, testutil.ReadBitmap(t, output).Pixels)
}

func TestDistribute_SeedIsReproducible(t *testing.T) {
	a := newFixture(t, 3)
	b := newFixture(t, 3)

	_, _, err := runCLI(t, "distribute", a.secret, "3", a.covers, "--seed", "42", "--workers", "1")
	require.NoError(t, err)
	_, _, err = runCLI(t, "distribute", b.secret, "3", b.covers, "--seed", "42", "--workers", "4")
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		assert.Equal(t, testutil.ReadFile(t, a.cover(i)), testutil.ReadFile(t, b.cover(i)), "cover %d", i)
	}
}

func TestDistribute_SkipsSecretInCoverDirectory(t *testing.T) {
	f := newFixture(t, 3)
	secret := filepath.Join(f.covers, "aaa-secret.bmp")
	original, err := os.ReadFile(f.secret)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(secret, original, 0600))

	stdout, _, err := runCLI(t, "distribute", secret, "3", f.covers)
	require.NoError(t, err)
	assert.Contains(t, stdout, "into 3 images")

	after, err := os.ReadFile(secret)
	require.NoError(t, err)
	assert.Equal(t, original, after)
}

func TestRecover_DetectsTampering(t *testing.T) {
	f := newFixture(t, 3)
	_, _, err := runCLI(t, "distribute", f.secret, "3", f.covers)
	require.NoError(t, err)

	tampered := testutil.ReadBitmap(t, f.cover(1))
	for i := range tampered.Pixels {
		tampered.Pixels[i] ^= 0x05
	}
	testutil.WriteBitmap(t, f.cover(1), tampered)

	output := filepath.Join(f.root, "recovered.bmp")
	_, stderr, err := runCLI(t, "recover", output, "3", f.covers)
	require.Error(t, err)
	assert.Equal(t, ExitCheating, ExitCode(err))
	assert.Contains(t, stderr, "Error:")
	assert.NoFileExists(t, output)
}

func TestCommands_ValidationFailures(t *testing.T) {
	f := newFixture(t, 2)
	missing := filepath.Join(f.root, "missing")

	tests := []struct {
		name    string
		args    []string
		message string
	}{
		{"threshold too small", []string{"distribute", f.secret, "2", f.covers}, "k must be between 3 and 8"},
		{"threshold too large", []string{"recover", "out.bmp", "9", f.covers}, "k must be between 3 and 8"},
		{"threshold not a number", []string{"distribute", f.secret, "three", f.covers}, "k must be an integer"},
		{"missing secret", []string{"distribute", filepath.Join(f.root, "no.bmp"), "3", f.covers}, "does not exist or does not have a .bmp extension"},
		{"secret without extension", []string{"distribute", f.covers, "3", f.covers}, "does not exist or does not have a .bmp extension"},
		{"missing directory", []string{"distribute", f.secret, "3", missing}, "does not exist"},
		{"too few images", []string{"distribute", f.secret, "3", f.covers}, "at least 3 images are required in the directory, found 2"},
		{"output without extension", []string{"recover", filepath.Join(f.root, "out.png"), "3", f.covers}, ".bmp extension"},
		{"too few images to recover", []string{"recover", filepath.Join(f.root, "out.bmp"), "3", f.covers}, "at least 3 images are required"},
		{"wrong arg count", []string{"distribute", f.secret, "3"}, "accepts 3 arg(s)"},
		{"unknown flag", []string{"distribute", "--bogus"}, "unknown flag"},
		{"bad selection", []string{"recover", "out.bmp", "3", f.covers, "--selection", "best"}, "unknown selection"},
		{"bad output format", []string{"version", "-o", "yaml"}, "unknown output format"},
		{"inspect without paths", []string{"inspect"}, "requires at least one image or directory"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, stderr, err := runCLI(t, tt.args...)
			require.Error(t, err)
			assert.Equal(t, ExitValidation, ExitCode(err), "error: %v", err)
			assert.Contains(t, err.Error(), tt.message)
			assert.Contains(t, stderr, tt.message)
		})
	}
}

func TestDistribute_CoverShapeMismatchLeavesCoversUntouched(t *testing.T) {
	f := newFixture(t, 3)
	rng := mrand.New(mrand.NewPCG(3, 3))
	testutil.WriteBitmap(t, f.cover(3), testutil.RandomBitmap(rng, testWidth*2, testHeight, 255))

	before := make([][]byte, 4)
	for i := range before {
		before[i] = testutil.ReadFile(t, f.cover(i))
	}

	_, _, err := runCLI(t, "distribute", f.secret, "3", f.covers)
	require.Error(t, err)
	assert.Equal(t, ExitValidation, ExitCode(err))

	for i := range before {
		assert.Equal(t, before[i], testutil.ReadFile(t, f.cover(i)), "cover %d was modified", i)
	}
}

func TestDistribute_PixelRange(t *testing.T) {
	f := newFixture(t, 3)
	img := testutil.ReadBitmap(t, f.secret)
	img.Pixels[0] = 255
	testutil.WriteBitmap(t, f.secret, img)

	_, _, err := runCLI(t, "distribute", f.secret, "3", f.covers)
	require.Error(t, err)
	assert.Equal(t, ExitValidation, ExitCode(err))

	_, _, err = runCLI(t, "distribute", f.secret, "3", f.covers, "--clamp")
	require.NoError(t, err)

	output := filepath.Join(f.root, "recovered.bmp")
	_, _, err = runCLI(t, "recover", output, "3", f.covers)
	require.NoError(t, err)
	recovered := testutil.ReadBitmap(t, output)
	assert.Equal(t, byte(250), recovered.Pixels[0])
	assert.Equal(t, img.Pixels[1:], recovered.Pixels[1:])
}

func TestCommands_CorruptCoverIsIOError(t *testing.T) {
	f := newFixture(t, 3)
	require.NoError(t, os.WriteFile(f.cover(1), []byte("not a bitmap"), 0600))

	_, _, err := runCLI(t, "distribute", f.secret, "3", f.covers)
	require.Error(t, err)
	assert.Equal(t, ExitError, ExitCode(err))
}

func TestDistribute_JSONOutput(t *testing.T) {
	f := newFixture(t, 4)

	stdout, _, err := runCLI(t, "distribute", f.secret, "3", f.covers, "-o", "json")
	require.NoError(t, err)

	var result DistributionResult
	require.NoError(t, json.Unmarshal([]byte(stdout), &result))
	assert.Equal(t, 3, result.Threshold)
	assert.Equal(t, 4, result.BitWidth)
	assert.Equal(t, testWidth*testHeight/4, result.Blocks)
	assert.NotEmpty(t, result.CorrelationID)
	require.Len(t, result.Shadows, 4)
	for i, s := range result.Shadows {
		assert.Equal(t, fmt.Sprintf("cover%02d.bmp", i), s.Image)
		assert.Equal(t, uint16(i+1), s.Participant)
		assert.Equal(t, testWidth*testHeight/2, s.Bytes)
	}
}

func TestRecover_JSONOutput(t *testing.T) {
	f := newFixture(t, 4)
	_, _, err := runCLI(t, "distribute", f.secret, "4", f.covers)
	require.NoError(t, err)

	output := filepath.Join(f.root, "recovered.bmp")
	stdout, _, err := runCLI(t, "recover", output, "4", f.covers, "-o", "json")
	require.NoError(t, err)

	var result RecoveryResult
	require.NoError(t, json.Unmarshal([]byte(stdout), &result))
	assert.Equal(t, output, result.Output)
	assert.Equal(t, "cover00.bmp", result.Source)
	assert.Equal(t, []uint16{1, 2, 3, 4}, result.Participants)
	assert.Equal(t, []string{"cover00.bmp", "cover01.bmp", "cover02.bmp", "cover03.bmp"}, result.Images)
}

func TestInspect(t *testing.T) {
	f := newFixture(t, 3)
	_, _, err := runCLI(t, "distribute", f.secret, "3", f.covers)
	require.NoError(t, err)

	stdout, _, err := runCLI(t, "inspect", f.covers, f.secret, "-o", "json")
	require.NoError(t, err)

	var result struct {
		Images []ImageInfo `json:"images"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &result))
	require.Len(t, result.Images, 4)
	for i := 0; i < 3; i++ {
		assert.Equal(t, uint16(i+1), result.Images[i].Participant)
		assert.Equal(t, testWidth, result.Images[i].Width)
		assert.Equal(t, uint16(8), result.Images[i].BitsPerPixel)
	}
	assert.Equal(t, "secret.bmp", result.Images[3].Image)
	assert.Equal(t, uint16(0), result.Images[3].Participant)
}

func TestInspect_ReportsUnreadableImages(t *testing.T) {
	f := newFixture(t, 2)
	require.NoError(t, os.WriteFile(f.cover(1), []byte("junk"), 0600))

	stdout, _, err := runCLI(t, "inspect", f.covers, filepath.Join(f.root, "missing.bmp"))
	require.Error(t, err)
	assert.Contains(t, stdout, "cover00.bmp")
	assert.Contains(t, err.Error(), "cover01.bmp")
	assert.Contains(t, err.Error(), "missing.bmp")
}

func TestMetricsFile(t *testing.T) {
	f := newFixture(t, 3)
	path := filepath.Join(f.root, "shadowshare.prom")

	_, _, err := runCLI(t, "distribute", f.secret, "3", f.covers, "--metrics-file", path)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(data)
	assert.Contains(t, text, "shadowshare_operations_total")
	assert.Contains(t, text, `operation="distribute"`)
	assert.Contains(t, text, "shadowshare_goroutines")
}

func TestVersion(t *testing.T) {
	stdout, _, err := runCLI(t, "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(stdout, "shadowshare version "+Version))

	stdout, _, err = runCLI(t, "version", "-o", "json")
	require.NoError(t, err)
	var info map[string]string
	require.NoError(t, json.Unmarshal([]byte(stdout), &info))
	assert.Equal(t, Version, info["version"])
}
