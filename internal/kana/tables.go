package kana

// entry pairs a glyph with its romanization.
type entry struct {
	glyph  string
	romaji string
}

var mainHiragana = []entry{
	{"あ", "a"}, {"い", "i"}, {"う", "u"}, {"え", "e"}, {"お", "o"},
	{"か", "ka"}, {"き", "ki"}, {"く", "ku"}, {"け", "ke"}, {"こ", "ko"},
	{"さ", "sa"}, {"し", "shi"}, {"す", "su"}, {"せ", "se"}, {"そ", "so"},
	{"た", "ta"}, {"ち", "chi"}, {"つ", "tsu"}, {"て", "te"}, {"と", "to"},
	{"な", "na"}, {"に", "ni"}, {"ぬ", "nu"}, {"ね", "ne"}, {"の", "no"},
	{"は", "ha"}, {"ひ", "hi"}, {"ふ", "fu"}, {"へ", "he"}, {"ほ", "ho"},
	{"ま", "ma"}, {"み", "mi"}, {"む", "mu"}, {"め", "me"}, {"も", "mo"},
	{"や", "ya"}, {"ゆ", "yu"}, {"よ", "yo"},
	{"ら", "ra"}, {"り", "ri"}, {"る", "ru"}, {"れ", "re"}, {"ろ", "ro"},
	{"わ", "wa"}, {"を", "wo"}, {"ん", "n"},
}

var dakutenHiragana = []entry{
	{"が", "ga"}, {"ぎ", "gi"}, {"ぐ", "gu"}, {"げ", "ge"}, {"ご", "go"},
	{"ざ", "za"}, {"じ", "ji"}, {"ず", "zu"}, {"ぜ", "ze"}, {"ぞ", "zo"},
	{"だ", "da"}, {"ぢ", "di"}, {"づ", "du"}, {"で", "de"}, {"ど", "do"},
	{"ば", "ba"}, {"び", "bi"}, {"ぶ", "bu"}, {"べ", "be"}, {"ぼ", "bo"},
	{"ぱ", "pa"}, {"ぴ", "pi"}, {"ぷ", "pu"}, {"ぺ", "pe"}, {"ぽ", "po"},
}

var combinationHiragana = []entry{
	{"きゃ", "kya"}, {"きゅ", "kyu"}, {"きょ", "kyo"},
	{"しゃ", "sha"}, {"しゅ", "shu"}, {"しょ", "sho"},
	{"ちゃ", "cha"}, {"ちゅ", "chu"}, {"ちょ", "cho"},
	{"にゃ", "nya"}, {"にゅ", "nyu"}, {"にょ", "nyo"},
	{"ひゃ", "hya"}, {"ひゅ", "hyu"}, {"ひょ", "hyo"},
	{"みゃ", "mya"}, {"みゅ", "myu"}, {"みょ", "myo"},
	{"りゃ", "rya"}, {"りゅ", "ryu"}, {"りょ", "ryo"},
	{"ぎゃ", "gya"}, {"ぎゅ", "gyu"}, {"ぎょ", "gyo"},
	{"じゃ", "ja"}, {"じゅ", "ju"}, {"じょ", "jo"},
	{"びゃ", "bya"}, {"びゅ", "byu"}, {"びょ", "byo"},
	{"ぴゃ", "pya"}, {"ぴゅ", "pyu"}, {"ぴょ", "pyo"},
}

var mainKatakana = []entry{
	{"ア", "a"}, {"イ", "i"}, {"ウ", "u"}, {"エ", "e"}, {"オ", "o"},
	{"カ", "ka"}, {"キ", "ki"}, {"ク", "ku"}, {"ケ", "ke"}, {"コ", "ko"},
	{"サ", "sa"}, {"シ", "shi"}, {"ス", "su"}, {"セ", "se"}, {"ソ", "so"},
	{"タ", "ta"}, {"チ", "chi"}, {"ツ", "tsu"}, {"テ", "te"}, {"ト", "to"},
	{"ナ", "na"}, {"ニ", "ni"}, {"ヌ", "nu"}, {"ネ", "ne"}, {"ノ", "no"},
	{"ハ", "ha"}, {"ヒ", "hi"}, {"フ", "fu"}, {"ヘ", "he"}, {"ホ", "ho"},
	{"マ", "ma"}, {"ミ", "mi"}, {"ム", "mu"}, {"メ", "me"}, {"モ", "mo"},
	{"ヤ", "ya"}, {"ユ", "yu"}, {"ヨ", "yo"},
	{"ラ", "ra"}, {"リ", "ri"}, {"ル", "ru"}, {"レ", "re"}, {"ロ", "ro"},
	{"ワ", "wa"}, {"ヲ", "wo"}, {"ン", "n"},
}

var dakutenKatakana = []entry{
	{"ガ", "ga"}, {"ギ", "gi"}, {"グ", "gu"}, {"ゲ", "ge"}, {"ゴ", "go"},
	{"ザ", "za"}, {"ジ", "ji"}, {"ズ", "zu"}, {"ゼ", "ze"}, {"ゾ", "zo"},
	{"ダ", "da"}, {"ヂ", "ji"}, {"ヅ", "zu"}, {"デ", "de"}, {"ド", "do"},
	{"バ", "ba"}, {"ビ", "bi"}, {"ブ", "bu"}, {"ベ", "be"}, {"ボ", "bo"},
	{"パ", "pa"}, {"ピ", "pi"}, {"プ", "pu"}, {"ペ", "pe"}, {"ポ", "po"},
	{"ヴ", "vu"},
}

var combinationKatakana = []entry{
	{"キャ", "kya"}, {"キュ", "kyu"}, {"キョ", "kyo"},
	{"シャ", "sha"}, {"シュ", "shu"}, {"ショ", "sho"},
	{"チャ", "cha"}, {"チュ", "chu"}, {"チョ", "cho"},
	{"ニャ", "nya"}, {"ニュ", "nyu"}, {"ニョ", "nyo"},
	{"ヒャ", "hya"}, {"ヒュ", "hyu"}, {"ヒョ", "hyo"},
	{"ミャ", "mya"}, {"ミュ", "myu"}, {"ミョ", "myo"},
	{"リャ", "rya"}, {"リュ", "ryu"}, {"リョ", "ryo"},
	{"ギャ", "gya"}, {"ギュ", "gyu"}, {"ギョ", "gyo"},
	{"ジャ", "ja"}, {"ジュ", "ju"}, {"ジョ", "jo"},
	{"ヂャ", "dya"}, {"ヂュ", "dyu"}, {"ヂョ", "dyo"},
	{"ビャ", "bya"}, {"ビュ", "byu"}, {"ビョ", "byo"},
	{"ピャ", "pya"}, {"ピュ", "pyu"}, {"ピョ", "pyo"},

	// Foreign sounds.
	{"ヴァ", "va"}, {"ヴィ", "vi"}, {"ヴェ", "ve"}, {"ヴォ", "vo"},
	{"ウィ", "wi"}, {"ウェ", "we"}, {"ウォ", "wo"},
	{"ファ", "fa"}, {"フィ", "fi"}, {"フェ", "fe"}, {"フォ", "fo"},
	{"ツァ", "tsa"}, {"ツィ", "tsi"}, {"ツェ", "tse"}, {"ツォ", "tso"},
	{"シェ", "she"}, {"ジェ", "je"}, {"チェ", "che"},
	{"イェ", "ye"},
}
