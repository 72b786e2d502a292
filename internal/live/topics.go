package live

// Collection topics. They mirror the document paths of the store.
const (
	TopicPosts = "posts"
	TopicNews  = "news"
)

// UserTopic is signalled when a user's profile or one of its sets changes.
func UserTopic(uid string) string { return "users/" + uid }

// EventsTopic is signalled when a user's calendar changes.
func EventsTopic(uid string) string { return "users/" + uid + "/events" }

// NotificationsTopic is signalled when a user's notifications change.
func NotificationsTopic(uid string) string { return "users/" + uid + "/notifications" }

// CommentsTopic is signalled when a comment is added under a post.
func CommentsTopic(postID string) string { return "posts/" + postID + "/comments" }

// ReportsTopic is signalled when a report is added under a post.
func ReportsTopic(postID string) string { return "posts/" + postID + "/reports" }
