package playback

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// removeDiacritics removes diacritical marks from a string (e.g., "Kofola Citrónová" -> "Kofola Citronova").
func removeDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	result, _, _ := transform.String(t, s)
	return result
}

// normalizeCampaignName normalizes a campaign name for folder matching
// (lowercase, no diacritics, spaces for dashes).
func normalizeCampaignName(name string) string {
	name = removeDiacritics(name)
	name = strings.ToLower(name)
	name = strings.ReplaceAll(name, "-", " ")
	return strings.TrimSpace(name)
}

// FindCampaignAudio locates the first .mp3 (lexicographically) under the
// campaign's folder in baseDir. Folder matching ignores case and
// diacritics, so "Kofola Citrónová" finds "kofola citronova/". Returns
// an empty path when the campaign has no audio; that is not an error.
func FindCampaignAudio(baseDir, campaign string) (string, error) {
	if campaign == "" {
		return "", nil
	}

	entries, err := os.ReadDir(baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", err
	}

	want := normalizeCampaignName(campaign)
	var campaignDir string
	for _, e := range entries {
		if e.IsDir() && normalizeCampaignName(e.Name()) == want {
			campaignDir = filepath.Join(baseDir, e.Name())
			break
		}
	}
	if campaignDir == "" {
		return "", nil
	}

	files, err := os.ReadDir(campaignDir)
	if err != nil {
		return "", err
	}

	var tracks []string
	for _, f := range files {
		if !f.IsDir() && strings.EqualFold(filepath.Ext(f.Name()), ".mp3") {
			tracks = append(tracks, f.Name())
		}
	}
	if len(tracks) == 0 {
		return "", nil
	}

	sort.Strings(tracks)
	return filepath.Join(campaignDir, tracks[0]), nil
}
