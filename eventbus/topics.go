package eventbus

// 전역 토픽 선언: 기능별 기본 토픽 이름을 관리합니다.
// config.yaml 의 kafka.topic 으로 교체할 수 있습니다.

var TopicPostEvents = NewTopic("autoblog.post.events")

// SetPostEventsTopic 은 설정 값으로 기본 포스트 이벤트 토픽을 교체합니다.
func SetPostEventsTopic(base string) {
	if base != "" {
		TopicPostEvents = NewTopic(base)
	}
}
