package messages

const (
	BadStatusCodeMsg    = "server returned status code %d on URL %s"
	DownloadFailedMsg   = "download failed on URL %s"
	InconsistentStreak  = "streak episode with positive length but no games for player %d"
	RecomputeTimeoutMsg = "streak recomputation for player %d exceeded its timeout"
	SchedulerIdleMsg    = "no logfile due for fetching, re-evaluating in %v"
)
