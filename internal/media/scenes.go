package media

import (
	"bufio"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// SceneScores runs a full decode pass that scores every frame's visual
// difference from its predecessor and streams (timestamp, score) pairs
// through emit. The select filter's threshold is the configured floor, so the
// pass is intentionally over-inclusive.
//
// ffmpeg prints the per-frame metadata on stderr as it decodes; the pairs are
// parsed incrementally so the whole video is never buffered. Truncated or
// out-of-order metadata lines are discarded rather than failing the pass.
func (s *FFmpegSource) SceneScores(ctx context.Context, path string, emit func(SceneCandidate)) error {
	ctx, cancel := withTimeout(ctx, s.cfg.DecodeTimeout)
	defer cancel()

	args := []string{
		"-hide_banner",
		"-i", path,
		"-vf", fmt.Sprintf("select='gt(scene,%g)',metadata=print", s.cfg.SceneFloor),
		"-f", "null",
		"-",
	}

	s.logger.Debug("starting scene decode pass", "path", path, "floor", s.cfg.SceneFloor)

	cmd := exec.CommandContext(ctx, s.ffmpegPath, args...)
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return &DecodeError{Path: path, Err: err}
	}
	if err := cmd.Start(); err != nil {
		return &DecodeError{Path: path, Err: err}
	}

	parser := &scoreParser{}
	count := 0

	scanner := bufio.NewScanner(stderr)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		if candidate, ok := parser.Line(scanner.Text()); ok {
			emit(candidate)
			count++
		}
	}

	if err := cmd.Wait(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return &DecodeError{Path: path, Err: err}
	}

	s.logger.Debug("scene decode pass complete", "path", path, "candidates", count)
	return nil
}

// scoreParser incrementally pairs pts_time and scene_score metadata lines.
// The metadata filter emits, per selected frame:
//
//	[Parsed_metadata_1 @ 0x...] frame:42  pts:126126 pts_time:4.2042
//	[Parsed_metadata_1 @ 0x...] lavfi.scene_score=0.083502
//
// A score line without a preceding timestamp, or a timestamp followed by
// another timestamp, is an unmatched fragment and is dropped.
type scoreParser struct {
	pending     float64
	havePending bool
}

// Line consumes one stderr line and reports a completed candidate, if any.
func (p *scoreParser) Line(line string) (SceneCandidate, bool) {
	if idx := strings.Index(line, "pts_time:"); idx >= 0 {
		field := line[idx+len("pts_time:"):]
		if cut := strings.IndexAny(field, " \t"); cut >= 0 {
			field = field[:cut]
		}
		ts, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
		if err != nil {
			p.havePending = false
			return SceneCandidate{}, false
		}
		p.pending = ts
		p.havePending = true
		return SceneCandidate{}, false
	}

	if idx := strings.Index(line, "lavfi.scene_score="); idx >= 0 {
		if !p.havePending {
			return SceneCandidate{}, false
		}
		p.havePending = false
		field := strings.TrimSpace(line[idx+len("lavfi.scene_score="):])
		score, err := strconv.ParseFloat(field, 64)
		if err != nil {
			return SceneCandidate{}, false
		}
		return SceneCandidate{Timestamp: p.pending, Score: score}, true
	}

	return SceneCandidate{}, false
}
