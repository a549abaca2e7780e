package redis

const (
	// KeyPrefixListChannel is the prefix for coarse "list changed" channels
	KeyPrefixListChannel = "linkboard:channel:list:"
	// KeyPrefixActivityChannel is the prefix for "activity created" channels
	KeyPrefixActivityChannel = "linkboard:channel:activity:"
)

// ListChannelKey returns the channel key carrying list_updated events
func ListChannelKey(listID string) string {
	return KeyPrefixListChannel + listID
}

// ActivityChannelKey returns the channel key carrying activity_created events
func ActivityChannelKey(listID string) string {
	return KeyPrefixActivityChannel + listID
}
