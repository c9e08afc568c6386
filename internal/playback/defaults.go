package playback

import (
	"math/rand/v2"

	"github.com/icberg-810202/tilecatread/internal/domain"
)

// DefaultQuotes is shown on the splash screen when the user has nothing to
// play. These quotes are never added to a user's books.
var DefaultQuotes = []domain.DefaultQuote{
	{Text: "未经审视的人生不值得度过。", Author: "苏格拉底"},
	{Text: "我们一直寻找的，却是自己原本早已拥有的；我们总是东张西望，唯独漏了自己想要的，这就是我们至今难以如愿以偿的原因。", Author: "柏拉图"},
	{Text: "人生最终的价值在于觉醒和思考的能力，而不只在于生存。", Author: "亚里士多德"},
	{Text: "每天反复做的事情造就了我们，然后你会发现，优秀不是一种行为，而是一种习惯。", Author: "亚里士多德"},
	{Text: "我思故我在。", Author: "笛卡尔"},
	{Text: "人生而自由，却无往不在枷锁中。", Author: "卢梭"},
	{Text: "自由不是让你想做什么就做什么，自由是教你不想做什么，就可以不做什么。", Author: "康德"},
	{Text: "世界上有两件东西能震撼人们的心灵：一件是我们心中崇高的道德标准；另一件是我们头顶上灿烂的星空。", Author: "康德"},
	{Text: "存在即合理。", Author: "黑格尔"},
	{Text: "人类从历史中所得到的教训就是：人类从来不记取历史教训。", Author: "黑格尔"},
	{Text: "每一个不曾起舞的日子，都是对生命的辜负。", Author: "尼采"},
	{Text: "人当诗意地栖居。", Author: "海德格尔"},
	{Text: "活着不是目的，活着才是目的。", Author: "亚瑟·叔本华"},
	{Text: "当你凝视深渊时，深渊也在凝视着你。", Author: "弗里德里希·尼采《善恶的彼岸》"},
	{Text: "我不同意你的观点，但我誓死捍卫你说话的权利。", Author: "伏尔泰"},
	{Text: "他人即地狱。", Author: "让-保罗·萨特"},
	{Text: "存在先于本质。", Author: "让-保罗·萨特"},
	{Text: "我们走得太远，以至于忘记了为什么而出发。", Author: "纪伯伦"},
	{Text: "你真正的价值取决于你所能给予他人的，而非你所能获取的。", Author: "阿尔伯特·爱因斯坦"},
	{Text: "要容忍不同意见，因为如果意见不被容忍，真理就没有存在的机会。", Author: "伯特兰·罗素"},
	{Text: "行动是治愈恐惧的良药。", Author: "威廉·詹姆斯"},
	{Text: "吾生也有涯，而知也无涯。", Author: "庄子"},
}

// RandomDefault picks one default quote uniformly. A nil r uses the global
// source.
func RandomDefault(r *rand.Rand) domain.SplashQuote {
	var i int
	if r != nil {
		i = r.IntN(len(DefaultQuotes))
	} else {
		i = rand.IntN(len(DefaultQuotes))
	}
	q := DefaultQuotes[i]
	return domain.SplashQuote{Text: q.Text, Author: q.Author, Default: true}
}
