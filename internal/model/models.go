package model

// All returns every model in migration order
func All() []interface{} {
	return []interface{}{
		&User{},
		&Plan{},
		&UserSubscription{},
		&Video{},
		&Comment{},
		&Reaction{},
		&WatchHistory{},
		&WatchLater{},
		&ChannelSubscription{},
		&DownloadRecord{},
		&DailyDownloadCounter{},
		&Report{},
	}
}
