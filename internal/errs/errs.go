package errs

import "fmt"

type Code string

const (
	OutputDirRequired     Code = "OUTPUT_DIR_REQUIRED"
	OutputDirMissing      Code = "OUTPUT_DIR_MISSING"
	ResultsDirWithoutSave Code = "RESULTS_DIR_WITHOUT_SAVE"
	PushWithoutSave       Code = "PUSH_WITHOUT_SAVE"
	InvalidConfPattern    Code = "INVALID_CONF_PATTERN"
	InvalidCronSpec       Code = "INVALID_CRON_SPEC"
)

var messages = map[Code]string{
	OutputDirRequired: `Missing target: provide the site directory with --output-dir

Usage:
  aestats run --output-dir /path/to/site

Reason:
  Generated data files (_data/*.yml, assets/data/*.json) are written
  into the site checkout; without it there is nowhere to put them.`,

	OutputDirMissing: `Output directory does not exist: %[1]s

Usage:
  aestats run --output-dir /path/to/site

Reason:
  The output directory must be an existing site checkout; it is never
  created implicitly to avoid scattering files on a typo.`,

	ResultsDirWithoutSave: `Invalid flag combination: --results-dir requires --save-results

Usage:
  aestats run --output-dir SITE --save-results
  aestats run --output-dir SITE --save-results --results-dir /srv/archive

Reason:
  --results-dir only selects where the archive snapshot is committed;
  without --save-results no snapshot is produced.`,

	PushWithoutSave: `Invalid flag combination: --push requires --save-results

Usage:
  aestats run --output-dir SITE --save-results --push

Reason:
  --push publishes the archive commit; without --save-results there is
  no commit to push.`,

	InvalidConfPattern: `Invalid conference filter: %[1]q is not a valid regular expression

Examples:
  aestats run --output-dir SITE --conf-regex 'usenix2024'
  aestats run --output-dir SITE --conf-regex '.*202[45]'`,

	InvalidCronSpec: `Invalid cron expression: %[1]q

Examples:
  aestats schedule --cron '0 3 * * *'     # daily at 03:00
  aestats schedule --cron '@weekly'`,
}

func Msg(code Code, a ...any) string {
	msg := messages[code]
	if msg == "" {
		msg = string(code)
	}
	return fmt.Sprintf(msg, a...)
}
